package repository

import (
	"encoding/json"
	"strings"

	"github.com/iliyamo/home-services/internal/model"
)

// extraFields holds the keys of a flat-file record that the store does not
// model.  They are written back unchanged so other tools sharing the file
// keep their data.
type extraFields map[string]json.RawMessage

// splitExtras decodes raw into known and returns every key known did not
// claim.
func splitExtras(raw []byte, known any) (extraFields, error) {
	if err := json.Unmarshal(raw, known); err != nil {
		return nil, err
	}
	var all extraFields
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	claimed, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(claimed, &keys); err != nil {
		return nil, err
	}
	// encoding/json matches keys case-insensitively.
	for k := range all {
		for known := range keys {
			if strings.EqualFold(k, known) {
				delete(all, k)
				break
			}
		}
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// joinExtras encodes known and overlays it on extra.  Known keys win.
func joinExtras(known any, extra extraFields) ([]byte, error) {
	out, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return out, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(extra)+len(fields))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

type plainUser fileUser

func (u fileUser) MarshalJSON() ([]byte, error) { return joinExtras(plainUser(u), u.extra) }

func (u *fileUser) UnmarshalJSON(raw []byte) error {
	var p plainUser
	extra, err := splitExtras(raw, &p)
	if err != nil {
		return err
	}
	*u = fileUser(p)
	u.extra = extra
	return nil
}

type plainWorker fileWorker

func (w fileWorker) MarshalJSON() ([]byte, error) { return joinExtras(plainWorker(w), w.extra) }

func (w *fileWorker) UnmarshalJSON(raw []byte) error {
	var p plainWorker
	extra, err := splitExtras(raw, &p)
	if err != nil {
		return err
	}
	*w = fileWorker(p)
	w.extra = extra
	return nil
}

// fileBooking is a booking row as stored in the flat file.
type fileBooking struct {
	model.Booking
	extra extraFields
}

func (b fileBooking) MarshalJSON() ([]byte, error) { return joinExtras(b.Booking, b.extra) }

func (b *fileBooking) UnmarshalJSON(raw []byte) error {
	var bk model.Booking
	extra, err := splitExtras(raw, &bk)
	if err != nil {
		return err
	}
	b.Booking, b.extra = bk, extra
	return nil
}
