package captain

import "go.jetify.com/typeid"

// NewID returns a new sortable identifier with the given prefix, e.g.
// "job_01h455vb4pex5vsknk084sn02q".
func NewID(prefix string) string {
	id, err := typeid.WithPrefix(prefix)
	if err != nil {
		panic(err)
	}
	return id.String()
}
