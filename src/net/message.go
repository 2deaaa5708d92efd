package net

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mosaicnetworks/murmur/src/common"
)

// Message is the envelope exchanged between nodes. Body is kept raw so that
// handlers can decode it into their own request types.
type Message struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

// MessageBody contains the fields common to every message body.
type MessageBody struct {
	Type      string `json:"type"`
	MsgID     int64  `json:"msg_id,omitempty"`
	InReplyTo int64  `json:"in_reply_to,omitempty"`

	// Code and Text are only set on error bodies.
	Code int    `json:"code"`
	Text string `json:"text,omitempty"`
}

// ErrorType is the type of message bodies carrying an RPCError.
const ErrorType = "error"

// NewMessage encodes body and wraps it in an envelope.
func NewMessage(src, dest string, body interface{}) (Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Src:  src,
		Dest: dest,
		Body: raw,
	}, nil
}

// Header decodes the common body fields.
func (m Message) Header() (MessageBody, error) {
	var h MessageBody
	err := json.Unmarshal(m.Body, &h)
	return h, err
}

// Type returns the body type, or the empty string if the body cannot be
// decoded.
func (m Message) Type() string {
	h, err := m.Header()
	if err != nil {
		return ""
	}
	return h.Type
}

// Decode unmarshals the body into v.
func (m Message) Decode(v interface{}) error {
	if err := json.Unmarshal(m.Body, v); err != nil {
		return common.NewRPCError(common.MalformedRequest, "%v", err)
	}
	return nil
}

// RPCError returns the error carried by an error body, or nil if the message is
// not an error.
func (m Message) RPCError() *common.RPCError {
	h, err := m.Header()
	if err != nil || h.Type != ErrorType {
		return nil
	}
	return &common.RPCError{
		Code: common.RPCErrType(h.Code),
		Text: h.Text,
	}
}

// lineDecoder reads newline-delimited JSON values. Unlike json.Decoder it can
// resume after a value that does not decode, since every value ends at a line
// break.
type lineDecoder struct {
	r *bufio.Reader
}

func newLineDecoder(r io.Reader) *lineDecoder {
	return &lineDecoder{r: bufio.NewReaderSize(r, bufSize)}
}

// Decode unmarshals the next non-blank line into v. A line that does not decode
// yields a *badLineError and the following call moves on to the next line.
// Read errors, io.EOF included, are returned once no line is left.
func (d *lineDecoder) Decode(v interface{}) error {
	for {
		line, err := d.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if uerr := json.Unmarshal(line, v); uerr != nil {
				return &badLineError{line: bytes.TrimSpace(line), err: uerr}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type badLineError struct {
	line []byte
	err  error
}

func (e *badLineError) Error() string {
	return fmt.Sprintf("malformed message %q: %v", e.line, e.err)
}

func isBadLine(err error) bool {
	_, ok := err.(*badLineError)
	return ok
}
