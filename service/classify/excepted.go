package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/provisor/provisor/model/record"
	"github.com/provisor/provisor/service/engine"
)

// PartiallyExcepted filters out records with excepted descendants: records not
// themselves excepted but with at least one excepted direct descendant. Such
// records look healthy yet are useless downstream, e.g. for export. The result
// maps the parent record ID to its excepted descendants. Depths beyond the
// direct descendants are not supported yet.
func PartiallyExcepted(ctx context.Context, service engine.Service, records []*record.ProcessRecord, toDepth int) (map[string][]*record.ProcessRecord, error) {
	if toDepth > 1 {
		return nil, fmt.Errorf("currently, toDepth > 1 not supported")
	}
	out := make(map[string][]*record.ProcessRecord)
	for _, r := range records {
		if r.State == record.StateExcepted {
			continue
		}
		for _, childID := range r.Descendants {
			child, err := service.Load(ctx, childID)
			if err != nil {
				if errors.Is(err, engine.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if child.State == record.StateExcepted {
				out[r.ID] = append(out[r.ID], child)
			}
		}
	}
	return out, nil
}
