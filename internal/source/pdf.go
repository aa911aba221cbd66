package source

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// PDFDocument открывает PDF через MuPDF и отдаёт страницы растрами.
type PDFDocument struct {
	doc  *fitz.Document
	path string
}

func OpenPDF(path string) (*PDFDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &PDFDocument{doc: doc, path: path}, nil
}

func (p *PDFDocument) PageCount() int {
	return p.doc.NumPage()
}

// RenderPage растеризует страницу (с 0) с заданным DPI.
func (p *PDFDocument) RenderPage(index int, dpi int) (*Still, error) {
	if index < 0 || index >= p.doc.NumPage() {
		return nil, fmt.Errorf("страница %d вне диапазона (всего %d)", index+1, p.doc.NumPage())
	}
	img, err := p.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, err
	}
	return NewStill(img), nil
}

func (p *PDFDocument) Close() error {
	return p.doc.Close()
}

// LoadPDF рендерит одну страницу PDF как статичный баннер.
func LoadPDF(path string, page int, dpi int) (*Still, error) {
	if dpi <= 0 {
		dpi = 150
	}
	doc, err := OpenPDF(path)
	if err != nil {
		return nil, fmt.Errorf("открытие PDF %s: %w", path, err)
	}
	defer doc.Close()
	return doc.RenderPage(page, dpi)
}
