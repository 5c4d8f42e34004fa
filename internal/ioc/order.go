package ioc

// RepairOrdering reorders the children of every indicator under root so that
// IndicatorItem children precede Indicator children. Relative order within
// each group is kept. The repair is in place and idempotent.
func RepairOrdering(root *Indicator) {
	if root == nil {
		return
	}
	items := make([]Node, 0, len(root.Children))
	var groups []Node
	for _, c := range root.Children {
		switch n := c.(type) {
		case *IndicatorItem:
			items = append(items, n)
		case *Indicator:
			groups = append(groups, n)
			RepairOrdering(n)
		}
	}
	root.Children = append(items, groups...)
}

// RepairOrdering applies RepairOrdering to the document's logic tree.
func (d *Document) RepairOrdering() {
	RepairOrdering(d.Criteria)
}

// Ordered reports whether every indicator under root lists its items before
// its sub-indicators.
func Ordered(root *Indicator) bool {
	ok := true
	Walk(root, func(n Node, _ int) bool {
		ind, isIndicator := n.(*Indicator)
		if !isIndicator || !ok {
			return ok
		}
		seenGroup := false
		for _, c := range ind.Children {
			if _, isGroup := c.(*Indicator); isGroup {
				seenGroup = true
			} else if seenGroup {
				ok = false
				return false
			}
		}
		return true
	})
	return ok
}
