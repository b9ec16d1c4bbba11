package pdf

import (
	"errors"
	"fmt"
	"sort"
)

// Image is an image XObject or inline image with its samples decoded up to
// any trailing image codec.
type Image struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       ColorSpace
	Decode           []float64
	ImageMask        bool
	Interpolate      bool
	Inline           bool

	// MaskArray is a colour-key mask: min/max pairs of raw sample values.
	MaskArray []int
	// MaskImage is an explicit stencil mask.
	MaskImage *Image
	SMask     *Image
	Matte     []float64

	// Samples holds the filter output. When Filter is set it is still
	// encoded with that codec.
	Samples []byte
	Filter  *FilterStage

	Dict Dictionary
}

// ErrImageSize reports an image with missing or invalid dimensions.
var ErrImageSize = errors.New("pdf: invalid image size")

// LoadImage reads an image XObject. Colour space names resolve through
// resources.
func LoadImage(doc *Document, stream Stream, resources Dictionary) (*Image, error) {
	return loadImage(doc, stream, resources, false, 0)
}

// LoadInlineImage reads the image carried by a BI operation.
func LoadInlineImage(doc *Document, op Operation, resources Dictionary) (*Image, error) {
	if op.Operator != "BI" || len(op.Operands) != 1 {
		return nil, fmt.Errorf("not an inline image: %s", op.Operator)
	}
	stream, ok := op.Operands[0].(Stream)
	if !ok {
		return nil, fmt.Errorf("inline image without data")
	}
	img, err := loadImage(doc, stream, resources, false, 0)
	if err != nil {
		return nil, err
	}
	img.Inline = true
	return img, nil
}

func loadImage(doc *Document, stream Stream, resources Dictionary, stencil bool, depth int) (*Image, error) {
	dict := stream.Dictionary
	img := &Image{Dict: dict}

	w, ok1 := doc.FloatOf(dict.Get("Width"))
	h, ok2 := doc.FloatOf(dict.Get("Height"))
	if !ok1 || !ok2 || w < 1 || h < 1 || w*h > 1<<28 {
		return nil, fmt.Errorf("%w: %vx%v", ErrImageSize, w, h)
	}
	img.Width, img.Height = int(w), int(h)

	if b, ok := doc.Resolve(dict.Get("ImageMask")).(Boolean); ok && bool(b) || stencil {
		img.ImageMask = true
	}
	if b, ok := doc.Resolve(dict.Get("Interpolate")).(Boolean); ok {
		img.Interpolate = bool(b)
	}

	data, codec, err := stream.DecodeImageData()
	if err != nil {
		return nil, err
	}
	if codec != nil && codec.Name != "DCTDecode" {
		return nil, fmt.Errorf("filter %s: %w", codec.Name, ErrUnsupportedFilter)
	}
	img.Samples = data
	img.Filter = codec

	if img.ImageMask {
		img.BitsPerComponent = 1
		img.Decode = []float64{0, 1}
		if d := doc.Floats(dict.Get("Decode")); len(d) == 2 {
			img.Decode = d
		}
		return img, nil
	}

	img.BitsPerComponent = 8
	if bpc, ok := doc.FloatOf(dict.Get("BitsPerComponent")); ok {
		img.BitsPerComponent = int(bpc)
	}
	for _, st := range stream.Filters() {
		if st.Name == "CCITTFaxDecode" {
			img.BitsPerComponent = 1
		}
	}
	switch img.BitsPerComponent {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("invalid BitsPerComponent %d", img.BitsPerComponent)
	}

	if csObj := dict.Get("ColorSpace"); csObj != nil {
		cs, err := doc.ParseColorSpace(csObj, resources)
		if err != nil {
			return nil, err
		}
		img.ColorSpace = cs
	} else if codec != nil {
		// a JPEG carries its own colour model
		img.ColorSpace = nil
	} else {
		img.ColorSpace = DeviceGray
	}

	if img.ColorSpace != nil {
		n := img.ColorSpace.NumComponents()
		img.Decode = img.ColorSpace.DefaultDecode(img.BitsPerComponent)
		if d := doc.Floats(dict.Get("Decode")); len(d) == 2*n {
			img.Decode = d
		}
	}

	if depth > 0 {
		return img, nil
	}

	switch m := doc.Resolve(dict.Get("Mask")).(type) {
	case Array:
		for _, v := range m {
			if f, ok := doc.FloatOf(v); ok {
				img.MaskArray = append(img.MaskArray, int(f))
			}
		}
	case Stream:
		mask, err := loadImage(doc, m, resources, true, depth+1)
		if err == nil {
			img.MaskImage = mask
		}
	}

	if s, ok := doc.StreamOf(dict.Get("SMask")); ok {
		smask, err := loadImage(doc, s, resources, false, depth+1)
		if err == nil {
			if smask.ColorSpace == nil {
				smask.ColorSpace = DeviceGray
			}
			smask.Matte = doc.Floats(s.Dictionary.Get("Matte"))
			img.SMask = smask
		}
	}
	return img, nil
}

// NumComponents returns the number of colour components per sample.
func (img *Image) NumComponents() int {
	if img.ImageMask || img.ColorSpace == nil {
		return 1
	}
	return img.ColorSpace.NumComponents()
}

// RowBytes returns the packed size of one sample row.
func (img *Image) RowBytes() int {
	return (img.Width*img.NumComponents()*img.BitsPerComponent + 7) / 8
}

// ImageInfo summarises an image XObject for listings.
type ImageInfo struct {
	Page             int
	Name             string
	Width            int
	Height           int
	ColorSpace       string
	Components       int
	BitsPerComponent int
	Filter           string
	ImageMask        bool
	Interpolate      bool
	HasSMask         bool
	HasMask          bool
	ObjectNum        int
	Generation       int
}

// ExtractImages lists the image XObjects referenced by a range of pages.
func ExtractImages(doc *Document, firstPage, lastPage int) ([]*ImageInfo, error) {
	var images []*ImageInfo

	for pageNum := firstPage; pageNum <= lastPage; pageNum++ {
		page, err := doc.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		xobjects, ok := doc.DictOf(page.Resources.Get("XObject"))
		if !ok {
			continue
		}

		names := make([]string, 0, len(xobjects))
		for name := range xobjects {
			names = append(names, string(name))
		}
		sort.Strings(names)

		for _, name := range names {
			ref := xobjects[Name(name)]
			stream, ok := doc.StreamOf(ref)
			if !ok {
				continue
			}
			if subtype, _ := doc.NameOf(stream.Dictionary.Get("Subtype")); subtype != "Image" {
				continue
			}
			info := &ImageInfo{Page: pageNum, Name: name}
			if img, err := LoadImage(doc, stream, page.Resources); err == nil {
				info.Width, info.Height = img.Width, img.Height
				info.Components = img.NumComponents()
				info.BitsPerComponent = img.BitsPerComponent
				info.ImageMask = img.ImageMask
				info.Interpolate = img.Interpolate
				info.HasSMask = img.SMask != nil
				info.HasMask = img.MaskImage != nil || img.MaskArray != nil
				if img.ColorSpace != nil {
					info.ColorSpace = string(img.ColorSpace.Family())
				}
			}
			if filters := stream.Filters(); len(filters) > 0 {
				info.Filter = string(filters[len(filters)-1].Name)
			}
			if r, ok := ref.(Reference); ok {
				info.ObjectNum, info.Generation = r.ObjectNumber, r.GenerationNumber
			}
			images = append(images, info)
		}
	}
	return images, nil
}
