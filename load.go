package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// digits is a set of normalized images held as an (N, rows*cols) tensor.
type digits struct {
	images *tensor.Dense
	labels []int
	rows   int
	cols   int
}

func (d *digits) Len() int {
	return len(d.labels)
}

// Sample returns image i as a row view into the backing tensor.
func (d *digits) Sample(i int) ([]float64, int) {
	w := d.rows * d.cols
	return d.images.Data().([]float64)[i*w : (i+1)*w], d.labels[i]
}

// limit truncates the set to its first n examples (n <= 0 keeps all).
func (d *digits) limit(n int) *digits {
	if n <= 0 || n >= d.Len() {
		return d
	}
	w := d.rows * d.cols
	backing := d.images.Data().([]float64)[:n*w]
	return &digits{
		images: tensor.New(tensor.WithShape(n, w), tensor.WithBacking(backing)),
		labels: d.labels[:n],
		rows:   d.rows,
		cols:   d.cols,
	}
}

func loadMNIST(imagesPath, labelsPath string) (*digits, error) {
	imgFile, err := os.Open(imagesPath)
	if err != nil {
		return nil, err
	}
	defer imgFile.Close()
	lblFile, err := os.Open(labelsPath)
	if err != nil {
		return nil, err
	}
	defer lblFile.Close()

	imgInfo, err := imgFile.Stat()
	if err != nil {
		return nil, err
	}
	lblInfo, err := lblFile.Stat()
	if err != nil {
		return nil, err
	}

	d, err := readImages(bufio.NewReader(imgFile), imgInfo.Size())
	if err != nil {
		return nil, errors.Wrap(err, imagesPath)
	}
	labels, err := readLabels(bufio.NewReader(lblFile), lblInfo.Size())
	if err != nil {
		return nil, errors.Wrap(err, labelsPath)
	}
	if len(labels) != d.images.Shape()[0] {
		return nil, errors.Errorf("%d images but %d labels", d.images.Shape()[0], len(labels))
	}
	d.labels = labels
	return d, nil
}

// readImages parses an IDX3 image file: magic 2051, count, rows, cols, then
// one unsigned byte per pixel, scaled to [0, 1]. total is the size of the whole
// file; a header promising more pixels than that is rejected before allocating.
func readImages(r io.Reader, total int64) (*digits, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if header[0] != imagesMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", header[0], imagesMagic)
	}
	if header[1] == 0 || header[2] == 0 || header[3] == 0 {
		return nil, errors.Errorf("empty image set: %d images of %dx%d", header[1], header[2], header[3])
	}
	payload := uint64(0)
	if total > 16 {
		payload = uint64(total - 16)
	}
	pixels := uint64(header[2]) * uint64(header[3])
	if pixels > payload || uint64(header[1]) > payload/pixels {
		return nil, errors.Errorf("header claims %d images of %dx%d, file holds %d pixel bytes",
			header[1], header[2], header[3], payload)
	}
	count, rows, cols := int(header[1]), int(header[2]), int(header[3])
	size := rows * cols

	norm := make([]float64, count*size)
	row := make([]byte, size)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, errors.Wrapf(err, "reading image %d", i)
		}
		for j, px := range row {
			norm[i*size+j] = float64(px) / 255.0
		}
	}
	return &digits{
		images: tensor.New(tensor.WithShape(count, size), tensor.WithBacking(norm)),
		rows:   rows,
		cols:   cols,
	}, nil
}

// readLabels parses an IDX1 label file: magic 2049, count, then one byte per
// label. total is the size of the whole file.
func readLabels(r io.Reader, total int64) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if header[0] != labelsMagic {
		return nil, errors.Errorf("invalid magic number: got %d, want %d", header[0], labelsMagic)
	}
	if int64(header[1]) > total-8 {
		return nil, errors.Errorf("header claims %d labels, file holds %d bytes", header[1], total-8)
	}
	raw := make([]byte, header[1])
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "reading labels")
	}
	labels := make([]int, len(raw))
	for i, l := range raw {
		labels[i] = int(l)
	}
	return labels, nil
}

// saveImg writes image i as a grayscale PNG.
func saveImg(d *digits, i int, path string) error {
	if i < 0 || i >= d.Len() {
		return errors.Errorf("image %d outside [0, %d)", i, d.Len())
	}
	img := image.NewGray(image.Rect(0, 0, d.cols, d.rows))
	for y := 0; y < d.rows; y++ {
		for x := 0; x < d.cols; x++ {
			v, err := d.images.At(i, y*d.cols+x)
			if err != nil {
				return err
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v.(float64)*255.0 + 0.5)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return err
	}
	return file.Close()
}

func describe(d *digits) string {
	counts := make(map[int]int)
	for _, l := range d.labels {
		counts[l]++
	}
	return fmt.Sprintf("%d images of %dx%d, %d classes", d.Len(), d.rows, d.cols, len(counts))
}
