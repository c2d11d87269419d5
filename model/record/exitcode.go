package record

// ExitCode pairs a numeric exit status with its message, as declared by a
// process class specification.
type ExitCode struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// ExitCodesAsMap converts a list of exit codes into a status to message map.
func ExitCodesAsMap(codes []ExitCode) map[int]string {
	out := make(map[int]string, len(codes))
	for _, code := range codes {
		out[code.Status] = code.Message
	}
	return out
}

// ValidateExitStatuses reports whether every nonzero status is declared by the
// supplied exit codes. Status 0 is success and always passes.
func ValidateExitStatuses(declared []ExitCode, statuses []int) bool {
	valid := ExitCodesAsMap(declared)
	for _, status := range statuses {
		if status == 0 {
			continue
		}
		if _, ok := valid[status]; !ok {
			return false
		}
	}
	return true
}
