package grouping

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/provisor/provisor/internal/clock"
	"github.com/provisor/provisor/internal/idgen"
)

func TestGroupMembers(t *testing.T) {
	g := &Group{Label: "experiment-1"}
	assert.Equal(t, 2, g.AddMembers("p1", "p2"))
	assert.Equal(t, 1, g.AddMembers("p2", "p3"))
	assert.Equal(t, 3, g.Size())
	assert.True(t, g.HasMember("p2"))
	assert.False(t, g.HasMember("p4"))
	assert.Equal(t, []string{"p1", "p2", "p3"}, g.MemberIDs())

	ids := g.MemberIDs()
	ids[0] = "other"
	assert.Equal(t, "p1", g.MemberIDs()[0])
}

func TestMemoryDAO(t *testing.T) {
	dao := NewMemoryDAO()
	ctx := context.Background()

	g := &Group{Label: "experiment-1"}
	g.AddMembers("p1")
	assert.NoError(t, dao.Save(ctx, g))

	loaded, err := dao.Load(ctx, "experiment-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"p1"}, loaded.MemberIDs())

	missing, err := dao.Load(ctx, "unknown")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, dao.Save(ctx, &Group{Label: "experiment-2"}))
	assert.NoError(t, dao.Save(ctx, &Group{Label: "scratch"}))
	list, err := dao.List(ctx, "experiment")
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	assert.NoError(t, dao.Delete(ctx, "experiment-1"))
	loaded, _ = dao.Load(ctx, "experiment-1")
	assert.Nil(t, loaded)
}

func TestUniqueLabel(t *testing.T) {
	prev, prevID := clock.NowFunc, idgen.NewFunc
	defer func() { clock.NowFunc, idgen.NewFunc = prev, prevID }()
	clock.NowFunc = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	idgen.NewFunc = func() string { return "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" }

	label := UniqueLabel("process_classification")
	assert.Equal(t, "process_classification_2026-03-14_09-26-53_aaaaaaaabbbbcccc", label)
	assert.True(t, strings.HasPrefix(label, "process_classification_"))
}
