package domain

// UploadState is a stage of the per-file upload pipeline.
type UploadState string

// Pipeline states in order. Any failed transition moves to StateFailed.
const (
	StatePending          UploadState = "pending"
	StateNameResolved     UploadState = "name_resolved"
	StateFilesCollected   UploadState = "files_collected"
	StateStoreCreated     UploadState = "store_created"
	StateProjectionOK     UploadState = "projection_ok"
	StateStyleBound       UploadState = "style_bound"
	StateRecordRegistered UploadState = "record_registered"
	StatePermissionsSet   UploadState = "permissions_set"
	StateVerified         UploadState = "verified"
	StateFailed           UploadState = "failed"
)

var stateOrder = []UploadState{
	StatePending,
	StateNameResolved,
	StateFilesCollected,
	StateStoreCreated,
	StateProjectionOK,
	StateStyleBound,
	StateRecordRegistered,
	StatePermissionsSet,
	StateVerified,
}

// Next returns the state that follows s on success.
func (s UploadState) Next() UploadState {
	for i, st := range stateOrder {
		if st == s && i+1 < len(stateOrder) {
			return stateOrder[i+1]
		}
	}
	return StateFailed
}

// Terminal reports whether no further transition is possible.
func (s UploadState) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

// SaveRequest describes one file upload.
type SaveRequest struct {
	Layer       LayerRef
	BaseFile    string
	User        User
	Overwrite   bool
	Title       string
	Abstract    string
	Keywords    []string
	Permissions *PermissionSpec // nil keeps the defaults
}

// UploadResult is one entry of a batch upload report: Name on success,
// Errors on failure. An archive entry lists every layer it published in
// Name and may carry Errors for the members that failed.
type UploadResult struct {
	File   string    `json:"file"`
	Name   string    `json:"name,omitempty"`
	Errors string    `json:"errors,omitempty"`
	Kind   ErrorKind `json:"-"`
}

// Failed reports whether the entry describes a failure.
func (r UploadResult) Failed() bool {
	return r.Errors != ""
}

// UploadReport is the ordered per-file outcome of a batch upload.
type UploadReport []UploadResult

// Failures returns the number of failed entries.
func (r UploadReport) Failures() int {
	n := 0
	for _, e := range r {
		if e.Failed() {
			n++
		}
	}
	return n
}
