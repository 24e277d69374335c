package lino

// Values handled by the codec are plain Go values: nil, bool, int64,
// float64, string, []any for arrays and *Object for maps. Encode also
// accepts int and int32 and widens them to int64.

// Object is a string-keyed map that preserves insertion order so that
// re-encoding a decoded value is byte-stable. Keys are unique; setting an
// existing key replaces the value in place.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set stores v under key, keeping the key's original position if it is
// already present.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	return len(o.keys)
}
