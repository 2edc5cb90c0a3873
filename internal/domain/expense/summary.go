package expense

import "sort"

// CategoryTotal is the spend of one category.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// Summary aggregates a list of expenses.
type Summary struct {
	Total      float64
	Count      int
	ByCategory []CategoryTotal // largest total first
}

func Summarize(items []*Expense) Summary {
	var s Summary
	index := make(map[string]int)
	for _, e := range items {
		s.Total += e.Amount
		s.Count++
		i, ok := index[e.Category]
		if !ok {
			i = len(s.ByCategory)
			index[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: e.Category})
		}
		s.ByCategory[i].Total += e.Amount
		s.ByCategory[i].Count++
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Total != s.ByCategory[j].Total {
			return s.ByCategory[i].Total > s.ByCategory[j].Total
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s
}
