package core

// Record is a single row of a collection as exchanged with the remote store:
// column name -> JSON value (string, float64, bool, nil, []interface{} or map[string]interface{}).
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Merge returns a copy of r overlaid with the keys of other.
func (r Record) Merge(other Record) Record {
	m := r.Clone()
	if m == nil {
		m = make(Record, len(other))
	}
	for k, v := range other {
		m[k] = v
	}
	return m
}
