// Package sampleimage accumulates per-pixel color samples during a render and
// persists them so that a render can be resumed.
package sampleimage

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"row-major/whitted/rgb"
)

const dataLayoutVersion = 1

const (
	maxHeaderLength = 1 << 20

	// Bounds on the image size accepted from a file.
	maxDimension = 1 << 16
	maxPixels    = 1 << 26
)

// Image holds running per-channel sums and sample counts for every pixel.
// Rows run top to bottom.
type Image struct {
	RowSize, ColSize int

	// RowSize*ColSize*3 channel sums.
	Sums []int64

	// RowSize*ColSize sample counts.
	Counts []int64
}

type Sample struct {
	Sum   [3]int64
	Count int64
}

func (s *Image) Resize(rowSize, colSize int) {
	s.RowSize = rowSize
	s.ColSize = colSize

	s.Sums = make([]int64, rowSize*colSize*3)
	s.Counts = make([]int64, rowSize*colSize)
}

func (s *Image) RecordSample(r, c int, color rgb.T) {
	idx := r*s.ColSize + c
	s.Sums[3*idx+0] += int64(color[0])
	s.Sums[3*idx+1] += int64(color[1])
	s.Sums[3*idx+2] += int64(color[2])
	s.Counts[idx]++
}

func (s *Image) ReadSample(r, c int) Sample {
	idx := r*s.ColSize + c
	return Sample{
		Sum:   [3]int64{s.Sums[3*idx+0], s.Sums[3*idx+1], s.Sums[3*idx+2]},
		Count: s.Counts[idx],
	}
}

// TotalSamples is the number of samples recorded across all pixels.
func (s *Image) TotalSamples() int64 {
	var total int64
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// Cut copies the rectangle [rowSrc, rowLim) x [colSrc, colLim) into a new
// image.
func (s *Image) Cut(rowSrc, rowLim, colSrc, colLim int) *Image {
	dst := &Image{}
	dst.Resize(rowLim-rowSrc, colLim-colSrc)

	for r := rowSrc; r < rowLim; r++ {
		srcIdx := r*s.ColSize + colSrc
		dstIdx := (r - rowSrc) * dst.ColSize
		copy(dst.Counts[dstIdx:dstIdx+dst.ColSize], s.Counts[srcIdx:srcIdx+dst.ColSize])
		copy(dst.Sums[3*dstIdx:3*(dstIdx+dst.ColSize)], s.Sums[3*srcIdx:3*(srcIdx+dst.ColSize)])
	}

	return dst
}

// Paste overwrites the rectangle of s starting at (rowSrc, colSrc) with src.
func (s *Image) Paste(src *Image, rowSrc, colSrc int) {
	for r := 0; r < src.RowSize; r++ {
		dstIdx := (r+rowSrc)*s.ColSize + colSrc
		srcIdx := r * src.ColSize
		copy(s.Counts[dstIdx:dstIdx+src.ColSize], src.Counts[srcIdx:srcIdx+src.ColSize])
		copy(s.Sums[3*dstIdx:3*(dstIdx+src.ColSize)], src.Sums[3*srcIdx:3*(srcIdx+src.ColSize)])
	}
}

// Resolve averages the samples of each pixel, truncating toward zero.  Pixels
// without samples are black.
func (s *Image) Resolve() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.ColSize, s.RowSize))
	for r := 0; r < s.RowSize; r++ {
		for c := 0; c < s.ColSize; c++ {
			samp := s.ReadSample(r, c)
			color := rgb.Black
			if samp.Count != 0 {
				color = rgb.Clamp(samp.Sum[0]/samp.Count, samp.Sum[1]/samp.Count, samp.Sum[2]/samp.Count)
			}
			img.SetRGBA(c, r, color.RGBA())
		}
	}
	return img
}

func Read(in io.Reader) (*Image, error) {
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}

	if headerLength > maxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds %d bytes", headerLength, maxHeaderLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr := &structpb.Struct{}
	if err := proto.Unmarshal(headerBytes, hdr); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	fields := hdr.GetFields()
	if v := fields["data_layout_version"].GetNumberValue(); v != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", v)
	}

	rowSize, err := dimension(fields["row_size"])
	if err != nil {
		return nil, fmt.Errorf("while reading row size: %w", err)
	}
	colSize, err := dimension(fields["col_size"])
	if err != nil {
		return nil, fmt.Errorf("while reading column size: %w", err)
	}
	if rowSize*colSize > maxPixels {
		return nil, fmt.Errorf("image size %dx%d exceeds %d pixels", colSize, rowSize, maxPixels)
	}

	im := &Image{}
	im.Resize(rowSize, colSize)

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, im.Sums); err != nil {
		return nil, fmt.Errorf("while reading sums: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, im.Counts); err != nil {
		return nil, fmt.Errorf("while reading counts: %w", err)
	}

	return im, nil
}

// dimension reads an image dimension from the header, rejecting anything that
// is not a whole number in [0, maxDimension].
func dimension(v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("missing or not a number")
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > maxDimension {
		return 0, fmt.Errorf("bad value %v", n.NumberValue)
	}
	return int(n.NumberValue), nil
}

func ReadFromFile(name string) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func Write(im *Image, w io.Writer) error {
	hdr, err := structpb.NewStruct(map[string]interface{}{
		"row_size":            im.RowSize,
		"col_size":            im.ColSize,
		"data_layout_version": dataLayoutVersion,
	})
	if err != nil {
		return fmt.Errorf("while building header: %w", err)
	}

	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Sums); err != nil {
		return fmt.Errorf("while writing sums: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Counts); err != nil {
		return fmt.Errorf("while writing counts: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}

// WriteToFile writes im to name, replacing it only once the whole image has
// been written.
func WriteToFile(im *Image, name string) error {
	tmp := name + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	if err := Write(im, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}

	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("while renaming file: %w", err)
	}

	return nil
}
