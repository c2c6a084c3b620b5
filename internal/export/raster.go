package export

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/hunt-tickets/venuemap/internal/engine"
)

// cornerSegments is how many line segments approximate a rounded corner.
const cornerSegments = 6

// Rasterize replays a frame of draw commands onto a new RGBA image. Dash
// patterns are drawn solid.
func Rasterize(cmds []engine.DrawCommand, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	p := &painter{dst: img, z: vector.NewRasterizer(width, height), faces: map[int]font.Face{}}
	for i := 0; i < len(cmds); i++ {
		if cmds[i].Op != engine.OpLine {
			p.draw(cmds[i])
			continue
		}
		// Runs of identical lines (the grid) go through the rasterizer once.
		j := i + 1
		for j < len(cmds) && sameLineStyle(cmds[i], cmds[j]) {
			j++
		}
		p.lines(cmds[i:j])
		i = j - 1
	}
	return img
}

type painter struct {
	dst   *image.RGBA
	z     *vector.Rasterizer
	faces map[int]font.Face
}

func sameLineStyle(a, b engine.DrawCommand) bool {
	return b.Op == engine.OpLine && a.Stroke == b.Stroke && a.StrokeWidth == b.StrokeWidth && a.Opacity == b.Opacity
}

func (p *painter) lines(cmds []engine.DrawCommand) {
	col, ok := parseColor(cmds[0].Stroke)
	if !ok {
		return
	}
	width := max(cmds[0].StrokeWidth, 1)
	polys := make([][]engine.Point, 0, len(cmds))
	for _, c := range cmds {
		if poly := linePolygon(c.X, c.Y, c.X2, c.Y2, width); poly != nil {
			polys = append(polys, poly)
		}
	}
	p.fill(polys, engine.Identity(), withOpacity(col, cmds[0].Opacity))
}

func (p *painter) draw(c engine.DrawCommand) {
	switch c.Op {
	case engine.OpClear:
		if col, ok := parseColor(c.Fill); ok {
			draw.Draw(p.dst, p.dst.Bounds(), image.NewUniform(withOpacity(col, c.Opacity)), image.Point{}, draw.Src)
		}

	case engine.OpLine:
		p.lines([]engine.DrawCommand{c})

	case engine.OpRect:
		p.box(commandMatrix(c), 0, 0, c.Width, c.Height, c)

	case engine.OpOutline, engine.OpHandle, engine.OpMarquee:
		p.box(engine.Identity(), c.X, c.Y, c.Width, c.Height, c)

	case engine.OpText:
		p.text(c)
	}
}

// box fills and strokes a possibly rounded rectangle given in the space m
// maps to the screen.
func (p *painter) box(m engine.Matrix2D, x, y, w, h float64, c engine.DrawCommand) {
	if w <= 0 || h <= 0 {
		return
	}
	if col, ok := parseColor(c.Fill); ok {
		p.fill([][]engine.Point{roundedRect(x, y, w, h, c.Radius)}, m, withOpacity(col, c.Opacity))
	}
	col, ok := parseColor(c.Stroke)
	if !ok || c.StrokeWidth <= 0 {
		return
	}
	hw := c.StrokeWidth / 2
	rings := [][]engine.Point{roundedRect(x-hw, y-hw, w+2*hw, h+2*hw, c.Radius+hw)}
	if w > c.StrokeWidth && h > c.StrokeWidth {
		inner := roundedRect(x+hw, y+hw, w-2*hw, h-2*hw, max(c.Radius-hw, 0))
		rings = append(rings, reversed(inner))
	}
	p.fill(rings, m, withOpacity(col, c.Opacity))
}

// fill rasterizes closed polygons with the non-zero rule, so a reversed
// inner polygon punches a hole.
func (p *painter) fill(polys [][]engine.Point, m engine.Matrix2D, col color.NRGBA) {
	if col.A == 0 || len(polys) == 0 {
		return
	}
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
	p.z.DrawOp = draw.Over
	for _, poly := range polys {
		for i, pt := range poly {
			x, y := m.TransformPoint(pt.X, pt.Y)
			if math.IsNaN(x) || math.IsNaN(y) {
				return
			}
			if i == 0 {
				p.z.MoveTo(float32(x), float32(y))
			} else {
				p.z.LineTo(float32(x), float32(y))
			}
		}
		p.z.ClosePath()
	}
	p.z.Draw(p.dst, b, image.NewUniform(col), image.Point{})
}

func (p *painter) text(c engine.DrawCommand) {
	col, ok := parseColor(c.Fill)
	if !ok || c.Text == "" {
		return
	}
	m := commandMatrix(c)
	x, y := m.TransformPoint(c.X, c.Y)
	size := c.FontSize * math.Hypot(m[0], m[1])

	face := p.faceFor(size)
	d := &font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(withOpacity(col, c.Opacity)),
		Face: face,
	}
	metrics := face.Metrics()
	w := d.MeasureString(c.Text).Ceil()
	baseline := int(math.Round(y)) + (metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	d.Dot = fixed.P(int(math.Round(x))-w/2, baseline)
	d.DrawString(c.Text)
}

func commandMatrix(c engine.DrawCommand) engine.Matrix2D {
	if len(c.Transform) != 6 {
		return engine.Identity()
	}
	var m engine.Matrix2D
	copy(m[:], c.Transform)
	return m
}

func linePolygon(x1, y1, x2, y2, width float64) []engine.Point {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return []engine.Point{
		{X: x1 + nx, Y: y1 + ny},
		{X: x2 + nx, Y: y2 + ny},
		{X: x2 - nx, Y: y2 - ny},
		{X: x1 - nx, Y: y1 - ny},
	}
}

// roundedRect walks the outline clockwise (in screen orientation).
func roundedRect(x, y, w, h, r float64) []engine.Point {
	r = clamp(r, 0, min(w, h)/2)
	if r == 0 {
		return []engine.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
	}
	corners := []struct{ cx, cy, start float64 }{
		{x + w - r, y + r, -math.Pi / 2},
		{x + w - r, y + h - r, 0},
		{x + r, y + h - r, math.Pi / 2},
		{x + r, y + r, math.Pi},
	}
	pts := make([]engine.Point, 0, 4*(cornerSegments+1))
	for _, c := range corners {
		for i := 0; i <= cornerSegments; i++ {
			a := c.start + float64(i)/cornerSegments*math.Pi/2
			pts = append(pts, engine.Point{X: c.cx + r*math.Cos(a), Y: c.cy + r*math.Sin(a)})
		}
	}
	return pts
}

func reversed(pts []engine.Point) []engine.Point {
	out := make([]engine.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

var (
	fontOnce sync.Once
	goFont   *opentype.Font
)

// faceFor returns a Go Regular face at the pixel size, falling back to the
// fixed 7x13 bitmap face if the font cannot be loaded. Faces are not safe
// for concurrent use, so each painter keeps its own.
func (p *painter) faceFor(size float64) font.Face {
	fontOnce.Do(func() {
		goFont, _ = opentype.Parse(goregular.TTF)
	})
	if goFont == nil {
		return basicfont.Face7x13
	}
	px := int(math.Round(clamp(size, 6, 96)))
	if f, ok := p.faces[px]; ok {
		return f
	}
	f, err := opentype.NewFace(goFont, &opentype.FaceOptions{Size: float64(px), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	p.faces[px] = f
	return f
}
