// Package record holds flattened rows and the ordered sets they are
// collected in before export.
package record

// Field is one named column value.
type Field struct {
	Name  string
	Value interface{}
}

// Record is one flat output row. Column order is insertion order.
type Record struct {
	fields []Field
	index  map[string]int
}

// New returns an empty record with room for n columns.
func New(n int) *Record {
	return &Record{
		fields: make([]Field, 0, n),
		index:  make(map[string]int, n),
	}
}

// Set assigns a column. Existing columns keep their position.
func (r *Record) Set(name string, value interface{}) *Record {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return r
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
	return r
}

// Get returns the value of a column and whether it exists.
func (r *Record) Get(name string) (interface{}, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Columns returns column names in order.
func (r *Record) Columns() []string {
	cols := make([]string, len(r.fields))
	for i, f := range r.fields {
		cols[i] = f.Name
	}
	return cols
}

// Values returns the values for the given columns; missing columns are nil.
func (r *Record) Values(columns []string) []interface{} {
	vals := make([]interface{}, len(columns))
	for i, c := range columns {
		vals[i], _ = r.Get(c)
	}
	return vals
}

// Fields returns a copy of the record's fields.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len is the number of columns.
func (r *Record) Len() int { return len(r.fields) }

// Set is an ordered collection of records produced by one fetch.
type Set struct {
	Resource string
	Records  []*Record
}

// NewSet returns an empty set for a resource.
func NewSet(resource string) *Set {
	return &Set{Resource: resource}
}

// Append adds records to the end of the set.
func (s *Set) Append(recs ...*Record) {
	s.Records = append(s.Records, recs...)
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.Records) }

// Columns returns the column order of the first record.
func (s *Set) Columns() []string {
	if len(s.Records) == 0 {
		return nil
	}
	return s.Records[0].Columns()
}

// Truncate drops records beyond n.
func (s *Set) Truncate(n int) {
	if n >= 0 && n < len(s.Records) {
		s.Records = s.Records[:n]
	}
}

// Filter returns a new set holding the records for which keep is true.
func (s *Set) Filter(keep func(*Record) bool) *Set {
	out := NewSet(s.Resource)
	for _, r := range s.Records {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}
