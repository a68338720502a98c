// Package translate produces the mock "translated" payloads handed to the
// callback dispatcher. Nothing is actually translated: each format gets a
// deterministic marker naming the requested target languages.
package translate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-pdf/fpdf"
	"github.com/kebal2/etranslation-mock/internal/worker/domain"
)

// Supported document formats
const (
	FormatText           = "text"
	FormatHTML           = "html"
	FormatXHTML          = "xhtml"
	FormatXML            = "xml"
	FormatPDF            = "pdf"
	FormatApplicationPDF = "application/pdf"
)

var (
	// ErrMissingPayload is returned when a request has neither a document nor text
	ErrMissingPayload = errors.New("request has neither document nor text to translate")

	// ErrUnsupportedContent is returned when a document cannot be decoded or parsed
	ErrUnsupportedContent = errors.New("document content cannot be processed")
)

// Source is the content of a translate request before rendering
type Source struct {
	// Text is set for plain text requests
	Text *string
	// DocumentBase64 and Format are set for document requests
	DocumentBase64 *string
	Format         string
}

// Result is the rendered payload for one destination
type Result struct {
	Kind    domain.PayloadKind
	Payload string
	Format  string
}

// Render builds the mock translation of src for the given target languages.
// A document takes precedence over text when both are present.
func Render(src Source, targetLanguages []string) (*Result, error) {
	var decoded, content string
	format := FormatText

	switch {
	case src.DocumentBase64 != nil:
		content = *src.DocumentBase64
		raw, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %v", ErrUnsupportedContent, err)
		}
		decoded = string(raw)
		format = strings.ToLower(strings.TrimSpace(src.Format))
	case src.Text != nil:
		decoded = *src.Text
		content = decoded
	default:
		return nil, ErrMissingPayload
	}

	langs := strings.Join(targetLanguages, ", ")

	switch format {
	case FormatText:
		return &Result{
			Kind:    domain.PayloadText,
			Payload: fmt.Sprintf("%s - should be translated to [%s]", decoded, langs),
			Format:  format,
		}, nil

	case FormatHTML:
		content = encode([]byte(fmt.Sprintf("%s<h1>Should be translated to [%s]</h1>", decoded, langs)))

	case FormatXHTML, FormatXML:
		out, err := prefixChildElements(decoded, langs, format == FormatXML)
		if err != nil {
			return nil, err
		}
		content = encode([]byte(out))

	case FormatPDF, FormatApplicationPDF:
		out, err := renderPDF(langs)
		if err != nil {
			return nil, err
		}
		content = encode(out)
	}

	return &Result{
		Kind:    domain.PayloadDocument,
		Payload: content,
		Format:  format,
	}, nil
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// prefixChildElements replaces the text of every direct child of the root
// element with "<langs> - <old text>". Plain XML is re-indented; XHTML keeps
// its original whitespace.
func prefixChildElements(decoded, langs string, indent bool) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
	}

	root := doc.Root()
	if root == nil {
		return "", fmt.Errorf("%w: document has no root element", ErrUnsupportedContent)
	}

	for _, el := range root.ChildElements() {
		value := innerText(el)
		for len(el.Child) > 0 {
			el.RemoveChildAt(0)
		}
		el.SetText(fmt.Sprintf("%s - %s", langs, value))
	}

	out := etree.NewDocument()
	out.SetRoot(root)
	if indent {
		out.Indent(2)
	}

	s, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return strings.TrimRight(s, "\n"), nil
}

// innerText concatenates all descendant character data, skipping comments
func innerText(el *etree.Element) string {
	var sb strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			sb.WriteString(innerText(t))
		}
	}
	return sb.String()
}

func renderPDF(langs string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 30)
	pdf.SetXY(10, 10)
	pdf.MultiCell(0, 12, fmt.Sprintf("Hello, World! Translate to [%s]", langs), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
