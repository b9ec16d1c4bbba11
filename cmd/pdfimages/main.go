// pdfimages - PDF image extractor
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/novvoo/go-pdfrender/pkg/pdf"
	"github.com/novvoo/go-pdfrender/pkg/render"
)

var (
	firstPage  = flag.Int("f", 1, "first page to scan")
	lastPage   = flag.Int("l", 0, "last page to scan")
	listImages = flag.Bool("list", false, "list images instead of extracting")
	jpegOut    = flag.Bool("j", false, "write images as JPEG files")
	tiffOut    = flag.Bool("tiff", false, "write images as TIFF files")
	ppmOut     = flag.Bool("ppm", false, "write images as PPM files")
	ownerPwd   = flag.String("opw", "", "owner password")
	userPwd    = flag.String("upw", "", "user password")
	printHelp  = flag.Bool("h", false, "print usage information")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: pdfimages [options] <PDF-file> <image-root>\n")
	fmt.Fprintf(os.Stderr, "       pdfimages [options] -list <PDF-file>\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *printHelp {
		usage()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 || !*listImages && len(args) < 2 {
		usage()
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Open PDF
	doc, err := pdf.Open(args[0])
	if errors.Is(err, pdf.ErrEncrypted) {
		if err = doc.Decrypt(*ownerPwd); err != nil {
			err = doc.Decrypt(*userPwd)
		}
	}
	if err != nil {
		logger.Error("opening PDF", "file", args[0], "error", err)
		os.Exit(1)
	}
	defer doc.Close()

	// Determine page range
	first := max(1, *firstPage)
	last := *lastPage
	if last == 0 || last > doc.NumPages() {
		last = doc.NumPages()
	}

	images, err := pdf.ExtractImages(doc, first, last)
	if err != nil {
		logger.Error("listing images", "error", err)
		os.Exit(1)
	}

	if *listImages {
		printList(images)
		return
	}

	format := render.FormatPNG
	switch {
	case *jpegOut:
		format = render.FormatJPEG
	case *tiffOut:
		format = render.FormatTIFF
	case *ppmOut:
		format = render.FormatPPM
	}

	written := 0
	for i, info := range images {
		filename := fmt.Sprintf("%s-%03d.%s", args[1], i, format)
		if dir := filepath.Dir(filename); dir != "." {
			os.MkdirAll(dir, 0755)
		}
		if err := writeImage(doc, info, filename, format); err != nil {
			logger.Warn("could not extract image", "page", info.Page, "image", info.Name, "error", err)
			continue
		}
		written++
	}
	fmt.Printf("Extracted %d of %d images\n", written, len(images))
}

func printList(images []*pdf.ImageInfo) {
	fmt.Printf("page name       width height color  comp bpc  enc        interp mask  object ID\n")
	fmt.Printf("-------------------------------------------------------------------------------\n")
	yesNo := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	for _, img := range images {
		colorSpace := img.ColorSpace
		if img.ImageMask {
			colorSpace = "stencil"
		} else if colorSpace == "" {
			colorSpace = "-"
		}
		enc := img.Filter
		if enc == "" {
			enc = "image"
		}
		fmt.Printf("%4d %-10s %5d %6d %-6s %4d %3d  %-10s %-6s %-5s %6d %2d\n",
			img.Page, img.Name,
			img.Width, img.Height,
			colorSpace, img.Components, img.BitsPerComponent,
			enc, yesNo(img.Interpolate), yesNo(img.HasSMask || img.HasMask),
			img.ObjectNum, img.Generation)
	}
}

// writeImage decodes an image XObject to RGBA and encodes it. Stencil
// masks are written black on transparent.
func writeImage(doc *pdf.Document, info *pdf.ImageInfo, filename string, format render.Format) error {
	page, err := doc.GetPage(info.Page)
	if err != nil {
		return err
	}
	obj, ok := doc.Resource(page.Resources, "XObject", pdf.Name(info.Name))
	if !ok {
		return fmt.Errorf("XObject %s not found", info.Name)
	}
	stream, ok := doc.StreamOf(obj)
	if !ok {
		return fmt.Errorf("XObject %s is not a stream", info.Name)
	}
	img, err := pdf.LoadImage(doc, stream, page.Resources)
	if err != nil {
		return err
	}
	rgba, err := render.ImageToRGBA(img, color.RGBA{A: 255})
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := render.Encode(f, rgba, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
