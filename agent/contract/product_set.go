package contract

// ProductSet keeps products unique by id in first-seen order.
type ProductSet struct {
	seen  map[int64]struct{}
	items []Product
}

func NewProductSet() *ProductSet {
	return &ProductSet{seen: make(map[int64]struct{}, 8)}
}

// Add appends products whose id has not been seen yet and reports how many were new.
func (s *ProductSet) Add(products ...Product) int {
	if s.seen == nil {
		s.seen = make(map[int64]struct{}, len(products))
	}
	added := 0
	for _, p := range products {
		if _, ok := s.seen[p.ID]; ok {
			continue
		}
		s.seen[p.ID] = struct{}{}
		s.items = append(s.items, p)
		added++
	}
	return added
}

func (s *ProductSet) Len() int {
	return len(s.items)
}

func (s *ProductSet) Products() []Product {
	return append([]Product(nil), s.items...)
}

func (s *ProductSet) IDs() []int64 {
	ids := make([]int64, 0, len(s.items))
	for _, p := range s.items {
		ids = append(ids, p.ID)
	}
	return ids
}
