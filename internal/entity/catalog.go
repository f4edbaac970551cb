package entity

// Catalog is the serialized index the storefront UI loads.
type Catalog struct {
	Apps []AppRecord `json:"apps"`
}

// Counts sums one aggregation pass.
type Counts struct {
	Total  int
	Valid  int
	Errors int
}

// BundleReport carries the problems of one bundle for operator output.
type BundleReport struct {
	Path     string
	Errors   []ValidationError
	Warnings []string
}

// ValidBundle pairs a canonical record with the raw bundle it came from, so
// collectors downstream can reach the source artifacts.
type ValidBundle struct {
	Record AppRecord
	Bundle *Bundle
}

// Aggregation is the complete result of one aggregation pass over the bundle
// tree. Valid is already in catalog order.
type Aggregation struct {
	Valid   []ValidBundle
	Counts  Counts
	Reports []BundleReport
}

func (a *Aggregation) Catalog() Catalog {
	apps := make([]AppRecord, 0, len(a.Valid))
	for _, v := range a.Valid {
		apps = append(apps, v.Record)
	}

	return Catalog{Apps: apps}
}
