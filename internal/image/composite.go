package image

import (
	"image"
	"image/color"

	"page-recognizer/pkg/colorutil"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Panel is one captioned image of a composite.
type Panel struct {
	Image   image.Image
	Caption string
}

// Composite lays panels out left to right at a common height.
type Composite struct {
	Height    int
	Gap       int
	BackColor color.Color
	TextColor color.Color
	Panels    []Panel
}

const captionHeight = 18

// NewComposite creates a Composite whose panels are scaled to height pixels.
func NewComposite(height int) *Composite {
	return &Composite{
		Height:    height,
		Gap:       8,
		BackColor: color.RGBA{40, 40, 40, 255}, // Dark gray background
		TextColor: colorutil.White,
	}
}

// Add appends a panel. Nil images are ignored.
func (c *Composite) Add(img image.Image, caption string) {
	if img == nil {
		return
	}
	c.Panels = append(c.Panels, Panel{Image: img, Caption: caption})
}

// scaledWidth returns the width of a panel scaled to the composite height.
func (c *Composite) scaledWidth(img image.Image) int {
	b := img.Bounds()
	if b.Dy() == 0 {
		return 0
	}
	w := b.Dx() * c.Height / b.Dy()
	if w < 1 {
		w = 1
	}
	return w
}

// Render produces the final composited image.
func (c *Composite) Render() *image.RGBA {
	width := c.Gap
	for _, p := range c.Panels {
		width += c.scaledWidth(p.Image) + c.Gap
	}
	height := c.Height + captionHeight + c.Gap

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), &image.Uniform{c.BackColor}, image.Point{}, draw.Src)

	x := c.Gap
	for _, p := range c.Panels {
		w := c.scaledWidth(p.Image)
		dst := image.Rect(x, captionHeight, x+w, captionHeight+c.Height)
		draw.BiLinear.Scale(result, dst, p.Image, p.Image.Bounds(), draw.Over, nil)

		if p.Caption != "" {
			d := &font.Drawer{
				Dst:  result,
				Src:  image.NewUniform(c.TextColor),
				Face: basicfont.Face7x13,
				Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(captionHeight - 5)},
			}
			d.DrawString(p.Caption)
		}
		x += w + c.Gap
	}
	return result
}
