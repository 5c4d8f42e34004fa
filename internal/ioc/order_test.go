package ioc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairOrdering(t *testing.T) {
	d := New()
	d.Criteria = mustIndicator(t, "root", "OR",
		mustIndicator(t, "g1", "AND",
			mustIndicator(t, "g3", "OR",
				mustItem(t, "x", "is", "x"),
			),
			mustItem(t, "y", "is", "y"),
			mustItem(t, "z", "is", "z"),
		),
		mustItem(t, "a", "is", "a"),
		mustIndicator(t, "g2", "AND"),
		mustItem(t, "b", "is", "b"),
	)
	assert.False(t, Ordered(d.Criteria))

	d.RepairOrdering()

	assert.True(t, Ordered(d.Criteria))
	assert.Equal(t, []string{"a", "b", "g1", "g2"}, childIDs(d.Criteria))
	g1 := d.Criteria.Children[2].(*Indicator)
	assert.Equal(t, []string{"y", "z", "g3"}, childIDs(g1))
}

func TestRepairOrdering_Idempotent(t *testing.T) {
	d := sampleDocument(t)
	d.Criteria.Append(mustItem(t, "e", "is", "e"))

	RepairOrdering(d.Criteria)
	once := childIDs(d.Criteria)
	var onceTree []string
	d.Walk(func(n Node, _ int) bool { onceTree = append(onceTree, n.NodeID()); return true })

	RepairOrdering(d.Criteria)
	var twiceTree []string
	d.Walk(func(n Node, _ int) bool { twiceTree = append(twiceTree, n.NodeID()); return true })

	assert.Equal(t, []string{"a", "d", "e", "g1"}, once)
	assert.Equal(t, onceTree, twiceTree)
}

func TestRepairOrdering_Nil(t *testing.T) {
	assert.NotPanics(t, func() { RepairOrdering(nil) })
}
