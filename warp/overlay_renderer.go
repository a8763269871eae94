package warp

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	frameColor    = color.RGBA{40, 40, 40, 255}
	sourceColor   = color.RGBA{120, 120, 220, 255}
	mappedColor   = color.RGBA{0, 150, 80, 255}
	interiorColor = color.RGBA{220, 30, 30, 255}
)

// maxOverlayExtent limits how far outside the frame the overlay reaches,
// in frame widths/heights. Samples near the horizon project very far away.
const maxOverlayExtent = 1.5

// OverlayRenderer draws a solve for inspection: the frame rectangle, the
// sampled boundary, and where that boundary lands at the solved ratio.
// Samples left strictly inside the frame are marked.
type OverlayRenderer struct {
	Camera     CameraIntrinsics
	Source     Contour
	Result     SolveResult
	Density    int
	Padding    float64           // padding in pixels around the drawn extent
	Resolution canvas.Resolution // PNG output resolution; 1 unit is 1 frame pixel at DPMM(1)
}

// NewOverlayRenderer samples the source boundary with cfg and prepares a renderer
func NewOverlayRenderer(cam CameraIntrinsics, cfg SolverConfig, result SolveResult) (*OverlayRenderer, error) {
	source, err := Sample(cfg.Policy, cam.Width, cam.Height, cfg.Density)
	if err != nil {
		return nil, err
	}
	return &OverlayRenderer{
		Camera:     cam,
		Source:     source,
		Result:     result,
		Density:    cfg.Density,
		Padding:    20,
		Resolution: canvas.DPMM(1),
	}, nil
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// Extent returns the drawn region in frame pixel coordinates
func (r *OverlayRenderer) Extent() orb.Bound {
	frame := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{r.Camera.MaxX(), r.Camera.MaxY()}}
	b := frame
	if len(r.Result.Contour) > 0 {
		b = b.Union(r.Result.Contour.Bound())
	}

	w := float64(r.Camera.Width) * maxOverlayExtent
	h := float64(r.Camera.Height) * maxOverlayExtent
	b.Min[0] = math.Max(b.Min[0], -w)
	b.Min[1] = math.Max(b.Min[1], -h)
	b.Max[0] = math.Min(b.Max[0], frame.Max[0]+w)
	b.Max[1] = math.Min(b.Max[1], frame.Max[1]+h)
	return b
}

func (r *OverlayRenderer) size() (float64, float64) {
	b := r.Extent()
	return (b.Max[0] - b.Min[0]) + 2*r.Padding, (b.Max[1] - b.Min[1]) + 2*r.Padding
}

// RenderToSVG writes the overlay as an SVG to the provided writer
func (r *OverlayRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the overlay as a PNG with a status caption
func (r *OverlayRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	drawCaption(rast, 6, 16, r.Caption(), frameColor)
	return png.Encode(w, rast)
}

// Caption summarizes the solve in one line
func (r *OverlayRenderer) Caption() string {
	return fmt.Sprintf("ratio=%.4f zoom=%.3f %s foldbacks=%d interior=%d",
		r.Result.Ratio, r.Result.Zoom, r.Result.Status, r.Result.FoldBacks,
		len(InteriorPoints(r.Result.Contour, r.Camera)))
}

func (r *OverlayRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	b := r.Extent()

	// Canvas is y-up; flip so frame row 0 is at the top
	toCanvas := func(x, y float64) (float64, float64) {
		return x - b.Min[0] + r.Padding, height - (y - b.Min[1] + r.Padding)
	}
	clamp := func(x, y float64) (float64, float64) {
		return math.Min(math.Max(x, b.Min[0]), b.Max[0]), math.Min(math.Max(y, b.Min[1]), b.Max[1])
	}

	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	// Frame rectangle
	frameStyle := canvas.DefaultStyle
	frameStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	frameStyle.Stroke = canvas.Paint{Color: frameColor}
	frameStyle.StrokeWidth = 2
	fx0, fy0 := toCanvas(0, 0)
	fx1, fy1 := toCanvas(r.Camera.MaxX(), r.Camera.MaxY())
	frame := &canvas.Path{}
	frame.MoveTo(fx0, fy0)
	frame.LineTo(fx1, fy0)
	frame.LineTo(fx1, fy1)
	frame.LineTo(fx0, fy1)
	frame.Close()
	renderer.RenderPath(frame, frameStyle, canvas.Identity)

	outline := func(c Contour, stroke color.RGBA) {
		ring := c.Outline(r.Density)
		if len(ring) == 0 {
			return
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: stroke}
		style.StrokeWidth = 1.5
		cp := &canvas.Path{}
		for i, pt := range ring {
			x, y := toCanvas(clamp(pt[0], pt[1]))
			if i == 0 {
				cp.MoveTo(x, y)
			} else {
				cp.LineTo(x, y)
			}
		}
		renderer.RenderPath(cp, style, canvas.Identity)
	}
	outline(r.Source, sourceColor)
	outline(r.Result.Contour, mappedColor)

	// Sample markers, interior ones in red
	inside := make(map[int]bool)
	for _, i := range InteriorPoints(r.Result.Contour, r.Camera) {
		inside[i] = true
	}
	for i, p := range r.Result.Contour {
		dot := canvas.DefaultStyle
		dot.Stroke = canvas.Paint{Color: canvas.Transparent}
		radius := 2.5
		dot.Fill = canvas.Paint{Color: mappedColor}
		if inside[i] {
			dot.Fill = canvas.Paint{Color: interiorColor}
			radius = 4
		}
		x, y := toCanvas(clamp(p.X, p.Y))
		renderer.RenderPath(canvas.Circle(radius), dot, canvas.Identity.Translate(x, y))
	}
}

// drawCaption renders text onto an image at the specified position
func drawCaption(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
