// Package b2f implements the B2F message codec: header assembly and
// validation in canonical order, and the binary block chunking format
// used when a message is forwarded compressed.
package b2f

import (
	"bytes"
	"fmt"
	"strconv"
)

// Type is the B2F message class: P=private, B=bulletin, T=traffic.
type Type byte

const (
	TypePrivate  Type = 'P'
	TypeBulletin Type = 'B'
	TypeTraffic  Type = 'T'
)

func (t Type) valid() bool {
	return t == TypePrivate || t == TypeBulletin || t == TypeTraffic
}

// File is one declared attachment: a name and its raw bytes.
type File struct {
	Name string
	Data []byte
}

// Message is one B2F message: headers, body, and zero or more attachments.
type Message struct {
	Mid     string
	Date    string // "YYYY/MM/DD HH:MM"
	Type    Type
	From    string
	To      []string
	Cc      []string
	Subject string
	Mbo     string
	Body    []byte
	Files   []File
}

const crlf = "\r\n"

// Marshal renders m in canonical header order (Mid, Date, Type, From,
// To*, Cc*, Subject, Mbo, Body, File*), followed by the body bytes, then
// each attachment's bytes in declared order, then a trailing CRLF.
func (m Message) Marshal() []byte {
	var buf bytes.Buffer
	writeHeader(&buf, "Mid", m.Mid)
	writeHeader(&buf, "Date", m.Date)
	writeHeader(&buf, "Type", fmt.Sprintf("%c", m.Type))
	writeHeader(&buf, "From", m.From)
	for _, to := range m.To {
		writeHeader(&buf, "To", to)
	}
	for _, cc := range m.Cc {
		writeHeader(&buf, "Cc", cc)
	}
	writeHeader(&buf, "Subject", m.Subject)
	if m.Mbo != "" {
		writeHeader(&buf, "Mbo", m.Mbo)
	}
	writeHeader(&buf, "Body", strconv.Itoa(len(m.Body)))
	for _, f := range m.Files {
		writeHeader(&buf, "File", fmt.Sprintf("%s %d", f.Name, len(f.Data)))
	}
	buf.WriteString(crlf)
	buf.Write(m.Body)
	for _, f := range m.Files {
		buf.Write(f.Data)
	}
	buf.WriteString(crlf)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString(crlf)
}
