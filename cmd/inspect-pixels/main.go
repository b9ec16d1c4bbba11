// inspect-pixels dumps dark pixels of a rendered PNG row by row
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/novvoo/go-pdfrender/pkg/imagediff"
)

func main() {
	firstRow := flag.Int("from", 0, "first row to scan")
	lastRow := flag.Int("to", -1, "last row to scan (-1 for the last row)")
	threshold := flag.Int("threshold", 10, "channels below this value count as dark")
	context := flag.Int("context", 2, "neighbouring pixels printed around each of the first dark pixels")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: inspect-pixels [options] <PNG-file>\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	img, err := imagediff.Load(flag.Arg(0))
	if err != nil {
		slog.Error("loading image", "error", err)
		os.Exit(1)
	}

	b := img.Bounds()
	last := *lastRow
	if last < 0 || last >= b.Dy() {
		last = b.Dy() - 1
	}

	rgb := func(x, y int) (uint8, uint8, uint8) {
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)
	}
	limit := uint8(max(0, min(255, *threshold)))

	for y := max(0, *firstRow); y <= last; y++ {
		var dark []int
		for x := 0; x < b.Dx(); x++ {
			if r, g, bl := rgb(x, y); r < limit && g < limit && bl < limit {
				dark = append(dark, x)
			}
		}
		if len(dark) == 0 {
			continue
		}

		fmt.Printf("row %d: %d dark pixels, first at", y, len(dark))
		for _, x := range dark[:min(10, len(dark))] {
			fmt.Printf(" %d", x)
		}
		fmt.Println()
		for _, x := range dark[:min(5, len(dark))] {
			fmt.Printf("  x=%d:", x)
			for px := max(0, x-*context); px <= min(b.Dx()-1, x+*context); px++ {
				r, g, bl := rgb(px, y)
				fmt.Printf(" (%d,%d,%d)", r, g, bl)
			}
			fmt.Println()
		}
	}
}
