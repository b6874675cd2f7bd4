package importwizard

import "github.com/cartacocktail/carta-backend/internal/recipes"

type SummaryItem struct {
	Kind recipes.Kind `json:"kind"`
	Key  string       `json:"key"`
	Name string       `json:"name"`
}

// Summary groups the referenced entities by what confirm will do with them.
type Summary struct {
	ToCreate         []SummaryItem `json:"toCreate"`
	MappedToExisting []SummaryItem `json:"mappedToExisting"`
	Skipped          []SummaryItem `json:"skipped"`
}

func (s Summary) Total() int {
	return len(s.ToCreate) + len(s.MappedToExisting) + len(s.Skipped)
}

// Summary is shown on the confirm step. Entries without a resolution are left out.
func (w *Wizard) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := Summary{ToCreate: []SummaryItem{}, MappedToExisting: []SummaryItem{}, Skipped: []SummaryItem{}}
	if w.preview == nil {
		return out
	}
	for _, kind := range kinds {
		for _, e := range w.preview.Entries(kind) {
			item := SummaryItem{Kind: kind, Key: e.Key, Name: e.Ref.Name}
			switch w.resolutions.ActionOf(kind, e.Key) {
			case recipes.ActionCreate:
				out.ToCreate = append(out.ToCreate, item)
			case recipes.ActionUseExisting:
				out.MappedToExisting = append(out.MappedToExisting, item)
			case recipes.ActionSkip:
				out.Skipped = append(out.Skipped, item)
			}
		}
	}
	return out
}
