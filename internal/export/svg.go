package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/spheresim/internal/physics"
	"github.com/san-kum/spheresim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// SnapshotToSVG draws an orthographic x/y view of a snapshot. Spheres are
// circles in their own colours, far ones (low z) first.
func SnapshotToSVG(objects []physics.Object, width, height int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))
	if len(objects) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}

	minX, maxX := objects[0].Position.X()-objects[0].Radius, objects[0].Position.X()+objects[0].Radius
	minY, maxY := objects[0].Position.Y()-objects[0].Radius, objects[0].Position.Y()+objects[0].Radius
	for _, o := range objects {
		minX = min(minX, o.Position.X()-o.Radius)
		maxX = max(maxX, o.Position.X()+o.Radius)
		minY = min(minY, o.Position.Y()-o.Radius)
		maxY = max(maxY, o.Position.Y()+o.Radius)
	}

	// One scale for both axes keeps spheres round.
	span := max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	scale := 0.9 * float64(min(width, height)) / span
	offX := (float64(width) - (maxX-minX)*scale) / 2
	offY := (float64(height) - (maxY-minY)*scale) / 2

	order := make([]int, len(objects))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return objects[order[a]].Position.Z() < objects[order[b]].Position.Z()
	})

	for _, i := range order {
		o := objects[i]
		cx := offX + (o.Position.X()-minX)*scale
		cy := float64(height) - offY - (o.Position.Y()-minY)*scale
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" fill-opacity="%.2f"/>
`, cx, cy, o.Radius*scale, hexColor(o.Color), o.Color.W()))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func hexColor(c mgl64.Vec4) string {
	channel := func(v float64) int {
		return int(mgl64.Clamp(v, 0, 1)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(c.X()), channel(c.Y()), channel(c.Z()))
}

// CanvasToSVG converts a braille canvas to SVG dots; marked cells use
// highlight.
func CanvasToSVG(canvas *viz.Canvas, scale float64, normal, highlight string) string {
	if canvas == nil {
		return ""
	}

	width := int(float64(canvas.DotWidth()) * scale)
	height := int(float64(canvas.DotHeight()) * scale)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.DotHeight(); y++ {
		for x := 0; x < canvas.DotWidth(); x++ {
			if !canvas.Get(x, y) {
				continue
			}
			fill := normal
			if canvas.Marked[y/4][x/2] {
				fill = highlight
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius, fill))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG plots values against their index, for per-frame stats.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(len(values) - 1)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))

	for i, v := range values {
		x := float64(i) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
