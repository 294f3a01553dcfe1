package models

// FunctionKind is the closed set of actions the intent router can pick.
type FunctionKind string

const (
	FunctionQueryRequest  FunctionKind = "query_request"
	FunctionFreeformReply FunctionKind = "freeform_reply"
)

// FunctionChoice is the router's decision together with the utterance it
// was made for.
type FunctionChoice struct {
	Kind      FunctionKind `json:"kind"`
	Utterance string       `json:"utterance"`
	Fallback  bool         `json:"fallback,omitempty"`
}

// SynthesizedQuery is a candidate read-only query for one schema.
type SynthesizedQuery struct {
	Text   string
	Schema SchemaDescriptor
}

// QueryResult keeps the storage column order in Columns; Records may be
// empty, which is not an error.
type QueryResult struct {
	Columns   []string                 `json:"columns"`
	Records   []map[string]interface{} `json:"records"`
	Truncated bool                     `json:"truncated,omitempty"`
}

func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Records) == 0
}
