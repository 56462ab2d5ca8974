package rpc

// MType tags the kind of message carried by an Envelope. Values are
// wire-stable: never renumber, never repurpose.
type MType int

const (
	// MCall asks the peer to invoke a named method of a named interface.
	MCall MType = 1
	// MRespData carries a successful call result.
	MRespData MType = 2
	// MRespErr carries a failed call result.
	MRespErr MType = 3
	// MCustom carries an opaque, non-RPC payload.
	MCustom MType = 4
	// MReady signals that the peer is prepared to receive further
	// envelopes; used only with the gated outbound queue.
	MReady MType = 5
)

func (t MType) String() string {
	switch t {
	case MCall:
		return "Call"
	case MRespData:
		return "RespData"
	case MRespErr:
		return "RespErr"
	case MCustom:
		return "Custom"
	case MReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Envelope is the tagged-union wire message of the multiplexer. Exactly one
// tag-specific field group is meaningful for a given MType; the others are
// left zero. All fields are additive-only and optional except where the
// wire contract in spec §6.1 requires them for a given tag.
//
// ReqID uses a pointer so that "absent" (fire-and-forget) is distinguishable
// from the valid request id 0.
type Envelope struct {
	MType MType `json:"mtype"`

	// Call fields.
	ReqID   *uint64 `json:"reqId,omitempty"`
	Iface   string  `json:"iface,omitempty"`
	Meth    string  `json:"meth,omitempty"`
	Args    []any   `json:"args,omitempty"`
	FwdDest *string `json:"fwdDest,omitempty"`

	// RespData / RespErr fields.
	Data interface{} `json:"data,omitempty"`
	Mesg string      `json:"mesg,omitempty"`
	Code string      `json:"code,omitempty"`
}

// NewCall builds a Call envelope. reqID of nil means fire-and-forget.
func NewCall(reqID *uint64, iface, meth string, args []any, fwdDest *string) *Envelope {
	return &Envelope{
		MType:   MCall,
		ReqID:   reqID,
		Iface:   iface,
		Meth:    meth,
		Args:    args,
		FwdDest: fwdDest,
	}
}

// NewRespData builds a successful response envelope.
func NewRespData(reqID uint64, data interface{}) *Envelope {
	return &Envelope{MType: MRespData, ReqID: &reqID, Data: data}
}

// NewRespErr builds a failed response envelope.
func NewRespErr(reqID uint64, mesg, code string) *Envelope {
	return &Envelope{MType: MRespErr, ReqID: &reqID, Mesg: mesg, Code: code}
}

// NewCustom builds a Custom message envelope.
func NewCustom(data interface{}, fwdDest *string) *Envelope {
	return &Envelope{MType: MCustom, Data: data, FwdDest: fwdDest}
}

// NewReady builds a Ready handshake envelope.
func NewReady() *Envelope {
	return &Envelope{MType: MReady}
}

// fwdDestPtr is a small helper so callers can write fwdDestPtr("x") instead
// of juggling a local variable to take its address.
func fwdDestPtr(s string) *string {
	return &s
}
