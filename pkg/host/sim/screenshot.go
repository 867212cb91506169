package sim

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sort"

	"github.com/oddgames/ui-automation/pkg/scene"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	background   = color.RGBA{R: 32, G: 32, B: 40, A: 255}
	plainFill    = color.RGBA{R: 70, G: 70, B: 80, A: 255}
	clickFill    = color.RGBA{R: 40, G: 110, B: 190, A: 255}
	dragFill     = color.RGBA{R: 60, G: 150, B: 90, A: 255}
	textFill     = color.RGBA{R: 190, G: 160, B: 60, A: 255}
	disabledFill = color.RGBA{R: 90, G: 60, B: 60, A: 255}
	outline      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	labelColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// CaptureScreenshot renders the active scene as a PNG: every active node
// with bounds as a box in draw order, labelled with its text or name.
func (h *Host) CaptureScreenshot() ([]byte, error) {
	img := h.Render()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render draws the active scene.
func (h *Host) Render() *image.RGBA {
	w, hgt := int(h.cfg.Screen.Width), int(h.cfg.Screen.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	var nodes []*scene.Node
	h.graph.Walk(func(n *scene.Node) bool {
		if !n.Active {
			return false
		}
		if !n.Bounds.Empty() {
			nodes = append(nodes, n)
		}
		return true
	})
	// lower layers first; walk order within a layer
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Layer < nodes[j].Layer })
	for _, n := range nodes {
		drawNode(img, n)
	}
	return img
}

func drawNode(img *image.RGBA, n *scene.Node) {
	b := n.Bounds
	r := image.Rect(int(b.X), int(b.Y), int(b.X+b.Width), int(b.Y+b.Height)).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(fillFor(n)), image.Point{}, draw.Src)
	drawOutline(img, r, outline)

	label := n.Text
	if label == "" && n.Component() != nil {
		label = n.Name
	}
	if label != "" {
		drawLabel(img, label, r)
	}
}

func fillFor(n *scene.Node) color.Color {
	if !n.Enabled || n.BlockingGroup() != nil {
		return disabledFill
	}
	set := n.Caps().Set
	switch {
	case set.Has(scene.TextEditable):
		return textFill
	case set.Has(scene.Draggable):
		return dragFill
	case set.Has(scene.Clickable):
		return clickFill
	default:
		return plainFill
	}
}

func drawOutline(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// drawLabel centres text in r using basicfont.Face7x13.
func drawLabel(img *image.RGBA, text string, r image.Rectangle) {
	const charWidth, ascent = 7, 10
	x := r.Min.X + (r.Dx()-len(text)*charWidth)/2
	if x < r.Min.X+1 {
		x = r.Min.X + 1
	}
	y := r.Min.Y + (r.Dy()+ascent)/2
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
