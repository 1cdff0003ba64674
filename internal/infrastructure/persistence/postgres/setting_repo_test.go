package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"z-novel-context-api/internal/domain/entity"
)

func TestOrderByIDs(t *testing.T) {
	items := []*entity.Setting{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	got := orderByIDs([]string{"b", "missing", "a", "b", "c"}, items, func(s *entity.Setting) string { return s.ID })

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Empty(t, orderByIDs(nil, items, func(s *entity.Setting) string { return s.ID }))
}
