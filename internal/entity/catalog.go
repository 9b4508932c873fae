package domain

// Item is a catalog entry. The dialog treats every lookup as a
// point-in-time snapshot; concurrent admin edits are not locked against.
type Item struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Sizes       []string
	Category    string
}

func (i *Item) HasSize(size string) bool {
	for _, s := range i.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
