package image

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// stripes runs fn over horizontal bands of rows in parallel.
func stripes(height int, fn func(yStart, yEnd int)) {
	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			fn(yStart, yEnd)
		}(startY, endY)
	}
	wg.Wait()
}

// ToMat converts a Go image to a 3-channel BGR Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("image has no pixels")
	}

	buf := make([]byte, width*height*3)
	stripes(height, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			row := buf[y*width*3:]
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				// OpenCV uses BGR format
				row[x*3+0] = uint8(b >> 8)
				row[x*3+1] = uint8(g >> 8)
				row[x*3+2] = uint8(r >> 8)
			}
		}
	})

	return gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
}

// ToImage converts an 8-bit gray, BGR or BGRA Mat to a Go image.
func ToImage(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h := mat.Rows()
	w := mat.Cols()
	ch := mat.Channels()
	if ch != 1 && ch != 3 && ch != 4 {
		return nil, fmt.Errorf("unsupported channel count %d", ch)
	}

	data := mat.ToBytes()
	if len(data) < w*h*ch {
		return nil, fmt.Errorf("mat holds %d bytes, want %d", len(data), w*h*ch)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride

	stripes(h, func(yStart, yEnd int) {
		for y := yStart; y < yEnd; y++ {
			rowOffset := y * stride
			src := data[y*w*ch:]
			for x := 0; x < w; x++ {
				pixOffset := rowOffset + x*4
				px := src[x*ch:]
				if ch == 1 {
					img.Pix[pixOffset+0] = px[0]
					img.Pix[pixOffset+1] = px[0]
					img.Pix[pixOffset+2] = px[0]
				} else {
					img.Pix[pixOffset+0] = px[2] // R
					img.Pix[pixOffset+1] = px[1] // G
					img.Pix[pixOffset+2] = px[0] // B
				}
				img.Pix[pixOffset+3] = 255
			}
		}
	})

	return img, nil
}
