package vellum

import (
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/vellum/core"
)

// SetTitle sets the document's title.
func (d *Document) SetTitle(title string) { d.setInfo("Title", title) }

// SetAuthor sets the document's author.
func (d *Document) SetAuthor(author string) { d.setInfo("Author", author) }

// SetSubject sets the document's subject.
func (d *Document) SetSubject(subject string) { d.setInfo("Subject", subject) }

// SetKeywords sets the document's keywords.
func (d *Document) SetKeywords(keywords string) { d.setInfo("Keywords", keywords) }

// SetCreator names the application that created the original content.
func (d *Document) SetCreator(creator string) { d.setInfo("Creator", creator) }

// SetProducer names the application that produced the file.
func (d *Document) SetProducer(producer string) { d.setInfo("Producer", producer) }

// setInfo writes one entry of the Info dictionary, creating the dictionary
// on first use.
func (d *Document) setInfo(key, value string) {
	info, ok := d.store.ResolveDict(d.store.Info)
	if !ok {
		info = core.Dict{
			"CreationDate": core.String(formatDate(time.Now())),
		}
		d.store.Info = d.store.Register(info)
	}
	info.Set(key, core.String(encodeTextString(value)))
	d.store.Put(d.store.Info, info)
}

// encodeTextString produces the bytes of a PDF text string: plain ASCII
// passes through, anything else becomes UTF-16BE with a byte order mark.
func encodeTextString(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7E || (s[i] < 0x20 && s[i] != '\n' && s[i] != '\r' && s[i] != '\t') {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	encoded, err := enc.String(s)
	if err != nil {
		return s
	}
	return encoded
}
