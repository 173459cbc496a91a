package session

import "encoding/json"

// EncodeOutbound and EncodeInbound serialize an in-flight entry for the
// durable store (§4.C). JSON is used because every packet type already
// carries json struct tags for exactly this kind of structured dump — no
// other serialization library in the dependency set fits a small internal
// record better.
func EncodeOutbound(e *Outbound) ([]byte, error) { return json.Marshal(e) }

func DecodeOutbound(b []byte) (*Outbound, error) {
	e := &Outbound{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, err
	}
	return e, nil
}

func EncodeInbound(e *Inbound) ([]byte, error) { return json.Marshal(e) }

func DecodeInbound(b []byte) (*Inbound, error) {
	e := &Inbound{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, err
	}
	return e, nil
}
