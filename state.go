package dashfeed

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/jpalmerr/dashfeed/internal/store"
)

// Query parameter names understood by the endpoint.
const (
	ParamStudentID = "studentID"
	ParamDate      = "date"
	ParamCacheBust = "cacheBust"
)

// Record is one decoded JSON object from the endpoint: a conversation or a
// student. Its fields are defined by the remote side.
type Record map[string]any

// DashboardState is the payload served by the endpoint.
//
// A successful fetch replaces the whole state; nothing is merged with the
// previous value.
type DashboardState struct {
	// Conversations is the ordered list of conversation records.
	Conversations []Record `json:"conversations"`

	// Students maps a student identifier to its record.
	Students map[string]Record `json:"students"`
}

// Filters narrow the data requested from the endpoint.
//
// Empty fields are left out of the request.
type Filters struct {
	StudentID string
	Date      string
}

// FiltersFromMap picks the recognized keys ("studentID" and "date") out of m.
// Other keys are ignored.
func FiltersFromMap(m map[string]string) Filters {
	return Filters{
		StudentID: m[ParamStudentID],
		Date:      m[ParamDate],
	}
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.StudentID == "" && f.Date == ""
}

// BuildURL returns a copy of base with the filter parameters and a
// cache-busting nonce derived from now.
//
// Query parameters already present on base are preserved. cacheBust is
// always set, in Unix milliseconds.
func BuildURL(base *url.URL, f Filters, now time.Time) *url.URL {
	u := *base
	q := u.Query()
	if f.StudentID != "" {
		q.Set(ParamStudentID, f.StudentID)
	}
	if f.Date != "" {
		q.Set(ParamDate, f.Date)
	}
	q.Set(ParamCacheBust, strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return &u
}

// decodeState parses a payload into a [DashboardState].
//
// A JSON null is rejected: the endpoint answers with an object even when
// there is no data.
func decodeState(body []byte) (DashboardState, error) {
	var raw *DashboardState
	if err := json.Unmarshal(body, &raw); err != nil {
		return DashboardState{}, err
	}
	if raw == nil {
		return DashboardState{}, errors.New("payload is null")
	}

	st := *raw
	if st.Conversations == nil {
		st.Conversations = []Record{}
	}
	if st.Students == nil {
		st.Students = map[string]Record{}
	}
	return st, nil
}

// toStoreState converts a [DashboardState] to its storage representation.
// Records are deep-copied so the store never shares maps with callers.
func toStoreState(st DashboardState) store.State {
	out := store.State{
		Conversations: make([]store.Record, len(st.Conversations)),
		Students:      make(map[string]store.Record, len(st.Students)),
	}
	for i, c := range st.Conversations {
		out.Conversations[i] = store.Record(cloneRecord(c))
	}
	for id, s := range st.Students {
		out.Students[id] = store.Record(cloneRecord(s))
	}
	return out
}

// fromStoreState converts a stored state back to a [DashboardState],
// deep-copying every record.
func fromStoreState(st store.State) DashboardState {
	out := DashboardState{
		Conversations: make([]Record, len(st.Conversations)),
		Students:      make(map[string]Record, len(st.Students)),
	}
	for i, c := range st.Conversations {
		out.Conversations[i] = cloneRecord(c)
	}
	for id, s := range st.Students {
		out.Students[id] = cloneRecord(s)
	}
	return out
}

// Clone returns a deep copy of st. Nested objects and arrays inside records
// are copied too.
func (st DashboardState) Clone() DashboardState {
	out := DashboardState{
		Conversations: make([]Record, len(st.Conversations)),
		Students:      make(map[string]Record, len(st.Students)),
	}
	for i, c := range st.Conversations {
		out.Conversations[i] = cloneRecord(c)
	}
	for id, s := range st.Students {
		out.Students[id] = cloneRecord(s)
	}
	return out
}

func cloneRecord(r map[string]any) Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = cloneValue(v)
	}
	return cp
}

// cloneValue copies the containers produced by encoding/json. Scalars are
// returned as is.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return map[string]any(cloneRecord(v))
	case Record:
		return cloneRecord(v)
	case store.Record:
		return store.Record(cloneRecord(v))
	case []any:
		cp := make([]any, len(v))
		for i, e := range v {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
