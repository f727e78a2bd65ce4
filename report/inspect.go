package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is what Inspect finds in a written PDF.
type Document struct {
	Pages      int
	Properties map[string]string
	// Contents holds the decompressed content stream of each page.
	Contents [][]byte
}

// Inspect reads back an exported PDF.
func Inspect(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open pdf", goerr.V("path", path))
	}
	defer f.Close()

	props, err := api.Properties(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read pdf properties", goerr.V("path", path))
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, goerr.Wrap(err, "failed to rewind pdf", goerr.V("path", path))
	}

	ctx, err := pdfcpu.Read(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read pdf", goerr.V("path", path))
	}
	if err := pdfcpu.OptimizeXRefTable(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to optimize xref table", goerr.V("path", path))
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, goerr.Wrap(err, "failed to count pages", goerr.V("path", path))
	}

	doc := &Document{Pages: ctx.PageCount, Properties: props}
	for i := 1; i <= ctx.PageCount; i++ {
		pageDict, _, _, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read page", goerr.V("page", i))
		}
		obj, found := pageDict.Find("Contents")
		if !found {
			doc.Contents = append(doc.Contents, nil)
			continue
		}
		data, err := pageContent(ctx, obj)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode page content", goerr.V("page", i))
		}
		doc.Contents = append(doc.Contents, data)
	}
	return doc, nil
}

// pageContent joins the decoded streams of a page's Contents entry, which is
// either one stream or an array of them.
func pageContent(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	parts := []types.Object{obj}
	if arr, ok := obj.(types.Array); ok {
		parts = arr
	}

	var buf bytes.Buffer
	for i, part := range parts {
		part, err := ctx.Dereference(part)
		if err != nil {
			return nil, err
		}
		sd, ok := part.(types.StreamDict)
		if !ok {
			return nil, goerr.New("page content is not a stream", goerr.V("index", i), goerr.V("type", fmt.Sprintf("%T", part)))
		}
		if err := sd.Decode(); err != nil {
			return nil, goerr.Wrap(err, "failed to decode stream", goerr.V("index", i))
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(sd.Content)
	}
	return buf.Bytes(), nil
}
