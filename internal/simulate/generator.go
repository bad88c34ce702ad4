package simulate

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/telestra/telestra/internal/domain/model"
)

// Stroke geometry bounds for generated drawings.
const (
	minStrokePoints  = 2
	maxStrokePoints  = 8
	canvasWidth      = 1280.0
	canvasHeight     = 720.0
	randomDivisor    = 1000000
	clearEveryNth    = 5
	markerEveryNth   = 7
	defaultLineWidth = 3.0
)

var strokeColors = []string{"#ff3b30", "#34c759", "#007aff", "#ffcc00"}

var markerLabels = []string{"good pass", "positioning", "shot selection", "pressing"}

var categoryIDs = []string{"technique", "awareness", "effort"}

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	return float64(n.Int64()) / float64(randomDivisor)
}

// randomInt returns a random int in [0, max).
func randomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// event is a scripted interaction submitted during a simulated recording.
type event struct {
	Type   string             `json:"type"`
	Action string             `json:"action,omitempty"`
	SeekTo int64              `json:"seekTo,omitempty"`
	Rate   float64            `json:"rate,omitempty"`
	Key    string             `json:"key,omitempty"`
	Label  string             `json:"label,omitempty"`
	Stroke *model.DrawingPath `json:"stroke,omitempty"`
}

// script is a full simulated review: a video id, the interaction sequence,
// and the category ratings applied at the end.
type script struct {
	VideoID    string
	Events     []event
	Categories map[string]int
}

// generateScript builds a review script of n interactions. The mix leans on
// drawings with periodic clears, seeks, and markers, approximating how a
// coach annotates match footage.
func generateScript(n int) script {
	events := make([]event, 0, n+1)
	events = append(events, event{Type: "video", Action: "play"})

	for i := 0; i < n; i++ {
		switch {
		case i%clearEveryNth == clearEveryNth-1:
			events = append(events, event{Type: "annotation", Action: "clear"})
		case i%markerEveryNth == markerEveryNth-1:
			events = append(events, event{
				Type:  "marker",
				Label: markerLabels[randomInt(len(markerLabels))],
			})
		case i%3 == 0:
			events = append(events, event{
				Type:   "video",
				Action: "seek",
				SeekTo: int64(randomFloat() * 90_000),
			})
		default:
			events = append(events, event{
				Type:   "annotation",
				Action: "draw",
				Stroke: generateStroke(),
			})
		}
	}

	categories := make(map[string]int, len(categoryIDs))
	for _, id := range categoryIDs {
		// Zero ratings are generated too; they exercise unrated handling.
		categories[id] = randomInt(6)
	}

	return script{
		VideoID:    "video-" + uuid.NewString(),
		Events:     events,
		Categories: categories,
	}
}

// generateStroke builds a freehand path inside the canvas bounds.
func generateStroke() *model.DrawingPath {
	count := minStrokePoints + randomInt(maxStrokePoints-minStrokePoints+1)
	points := make([]model.Point, count)
	x := randomFloat() * canvasWidth
	y := randomFloat() * canvasHeight
	for i := range points {
		points[i] = model.Point{X: x, Y: y}
		x += (randomFloat() - 0.5) * 60
		y += (randomFloat() - 0.5) * 60
	}
	return &model.DrawingPath{
		Points: points,
		Color:  strokeColors[randomInt(len(strokeColors))],
		Width:  defaultLineWidth,
		Tool:   model.ToolFreehand,
	}
}
