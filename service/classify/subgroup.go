package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/provisor/provisor/model/record"
)

// Derived subgroup names.
const (
	SubgroupFinishedOK = "finished_ok"
	SubgroupFailed     = "failed"
)

// SubgroupClassifiedResults derives two result subgroups under the given
// parent group: finished_ok (finished with exit status 0) and failed
// (excepted, killed, or finished with nonzero exit status). With dryRun the
// plan is printed and nothing is mutated; otherwise the subgroups are created
// as "<parent>/<name>" and the matching records added.
func (c *Classifier) SubgroupClassifiedResults(ctx context.Context, groupLabel string, dryRun, silent bool) error {
	parent, err := c.service.Groups().Load(ctx, groupLabel)
	if err != nil {
		return err
	}
	members := make(map[string]bool)
	for _, id := range parent.MemberIDs() {
		members[id] = true
	}
	for _, r := range c.records {
		if !members[r.ID] {
			log.Printf("Warning: the classified process records are not a subset of the specified group %q.", groupLabel)
			break
		}
	}

	if c.byState == nil && c.finished == nil {
		fmt.Println("INFO: No classification performed. Nothing to subgroup.")
		return nil
	}

	failedStatuses := make([]int, 0, len(c.finished))
	for status := range c.finished {
		if status != 0 {
			failedStatuses = append(failedStatuses, status)
		}
	}
	sort.Ints(failedStatuses)

	if dryRun {
		plan := map[string]interface{}{
			SubgroupFinishedOK: map[string][]int{string(record.StateFinished): {0}},
			SubgroupFailed: []interface{}{
				string(record.StateExcepted),
				string(record.StateKilled),
				map[string][]int{string(record.StateFinished): failedStatuses},
			},
		}
		data, err := json.MarshalIndent(plan, "", "    ")
		if err != nil {
			return err
		}
		fmt.Printf("INFO: I will try to group classified states into subgroups of group %q as follows. Keys are the subgroup names which I will load or create, values depict which sets of classified processes will be added.\n%s\nThis was a dry run. I will exit now.\n", groupLabel, data)
		return nil
	}

	subgroups := []struct {
		name    string
		buckets [][]*record.ProcessRecord
	}{
		{
			name:    SubgroupFinishedOK,
			buckets: [][]*record.ProcessRecord{c.finished[0]},
		},
		{
			name: SubgroupFailed,
			buckets: func() [][]*record.ProcessRecord {
				out := [][]*record.ProcessRecord{
					c.byState[record.StateExcepted],
					c.byState[record.StateKilled],
				}
				for _, status := range failedStatuses {
					out = append(out, c.finished[status])
				}
				return out
			}(),
		},
	}

	for _, subgroup := range subgroups {
		subLabel := groupLabel + "/" + subgroup.name
		if _, _, err := c.service.Groups().GetOrCreate(ctx, subLabel); err != nil {
			return fmt.Errorf("failed to load or create subgroup %s: %w", subLabel, err)
		}
		count := 0
		for _, bucket := range subgroup.buckets {
			if len(bucket) == 0 {
				continue
			}
			ids := make([]string, 0, len(bucket))
			for _, r := range bucket {
				ids = append(ids, r.ID)
			}
			if err := c.service.Groups().AddMembers(ctx, subLabel, ids...); err != nil {
				return fmt.Errorf("failed to add records to subgroup %s: %w", subLabel, err)
			}
			count += len(ids)
		}
		if !silent {
			fmt.Printf("Added %d processes to subgroup %q\n", count, subLabel)
		}
	}
	return nil
}
