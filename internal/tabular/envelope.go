package tabular

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope messages, kept byte-compatible with the spreadsheet web app.
const (
	MsgCreated       = "Record created successfully"
	MsgUpdated       = "Record updated successfully"
	MsgDeleted       = "Record deleted successfully"
	MsgSheetNotFound = "Sheet not found"
	MsgInvalidAction = "Invalid action"
)

// ReadResult is the envelope of a read.
type ReadResult struct {
	Status  string   `json:"status"`
	Data    []Record `json:"data"`
	Headers []string `json:"headers"`
	Message string   `json:"message,omitempty"`
}

// OK reports a success envelope.
func (r *ReadResult) OK() bool { return r != nil && r.Status == StatusSuccess }

// Err is nil on success, otherwise the typed form of Message.
func (r *ReadResult) Err() error {
	if r.OK() {
		return nil
	}
	if r == nil {
		return ErrorFromMessage("")
	}
	return ErrorFromMessage(r.Message)
}

// WriteResult is the envelope of create, update and delete.
type WriteResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r *WriteResult) OK() bool { return r != nil && r.Status == StatusSuccess }

func (r *WriteResult) Err() error {
	if r.OK() {
		return nil
	}
	if r == nil {
		return ErrorFromMessage("")
	}
	return ErrorFromMessage(r.Message)
}

// ReadSuccess wraps a sheet in a success envelope.
func ReadSuccess(s *Sheet) *ReadResult {
	headers := append([]string{}, s.Headers...)
	return &ReadResult{Status: StatusSuccess, Data: s.Records(), Headers: headers}
}

func ReadFailure(err error) *ReadResult {
	return &ReadResult{Status: StatusError, Message: MessageFor(err)}
}

func WriteSuccess(msg string) *WriteResult {
	return &WriteResult{Status: StatusSuccess, Message: msg}
}

func WriteFailure(err error) *WriteResult {
	return &WriteResult{Status: StatusError, Message: MessageFor(err)}
}
