// Package project persists a solved tile layout so a mosaic can be
// re-composited without matching and optimizing again.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gridstitch/pkg/geometry"
)

// FormatVersion is written to every positions file.
const FormatVersion = 1

// File is a positions file (.yaml).
type File struct {
	Version  int       `yaml:"version"`
	Created  time.Time `yaml:"created"`
	Modified time.Time `yaml:"modified"`

	Rows       int `yaml:"rows"`
	Cols       int `yaml:"cols"`
	TileWidth  int `yaml:"tile_width"`
	TileHeight int `yaml:"tile_height"`

	// Tiles are in row-major grid order.
	Tiles []Tile `yaml:"tiles"`

	Solver SolverInfo `yaml:"solver"`
}

// Tile records one tile's source image and solved placement.
type Tile struct {
	Index int     `yaml:"index"`
	Row   int     `yaml:"row"`
	Col   int     `yaml:"col"`
	Image string  `yaml:"image"` // relative to the positions file when possible
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`

	// Extent is [left, right, bottom, top] in canvas coordinates.
	Extent [4]float64 `yaml:"extent,flow"`
}

// SolverInfo summarizes the optimization that produced the layout.
type SolverInfo struct {
	Method          string  `yaml:"method"`
	Status          string  `yaml:"status"`
	Converged       bool    `yaml:"converged"`
	Iterations      int     `yaml:"iterations"`
	InitialDistance float64 `yaml:"initial_distance"`
	Distance        float64 `yaml:"distance"`
	Pinned          []int   `yaml:"pinned,omitempty,flow"`
}

// New creates an empty positions file for a rows x cols grid.
func New(rows, cols, tileW, tileH int) *File {
	now := time.Now()
	return &File{
		Version:    FormatVersion,
		Created:    now,
		Modified:   now,
		Rows:       rows,
		Cols:       cols,
		TileWidth:  tileW,
		TileHeight: tileH,
	}
}

// SetLayout records the flattened origin vector and image paths. Paths are
// stored relative to the directory of path, the file's eventual location.
func (p *File) SetLayout(path string, images []string, origins []float64) error {
	n := p.Rows * p.Cols
	if len(images) != n || len(origins) != 2*n {
		return fmt.Errorf("layout for %dx%d grid: got %d images and %d coordinates", p.Rows, p.Cols, len(images), len(origins))
	}
	p.Tiles = make([]Tile, n)
	for i := 0; i < n; i++ {
		x, y := origins[2*i], origins[2*i+1]
		e := geometry.NewExtent(geometry.Point2D{X: x, Y: y}, float64(p.TileWidth), float64(p.TileHeight))
		p.Tiles[i] = Tile{
			Index:  i,
			Row:    i / p.Cols,
			Col:    i % p.Cols,
			Image:  relativeTo(path, images[i]),
			X:      x,
			Y:      y,
			Extent: [4]float64{e.Left, e.Right, e.Bottom, e.Top},
		}
	}
	p.Modified = time.Now()
	return nil
}

// Origins returns the flattened origin vector.
func (p *File) Origins() []float64 {
	x := make([]float64, 2*len(p.Tiles))
	for i, t := range p.Tiles {
		x[2*i], x[2*i+1] = t.X, t.Y
	}
	return x
}

// ImagePaths returns tile image paths resolved against the positions file at path.
func (p *File) ImagePaths(path string) []string {
	out := make([]string, len(p.Tiles))
	for i, t := range p.Tiles {
		if t.Image == "" || filepath.IsAbs(t.Image) {
			out[i] = t.Image
			continue
		}
		out[i] = filepath.Join(filepath.Dir(path), t.Image)
	}
	return out
}

// Validate checks the grid shape against the tile list.
func (p *File) Validate() error {
	if p.Version != FormatVersion {
		return fmt.Errorf("unsupported positions version %d", p.Version)
	}
	if p.Rows < 1 || p.Cols < 1 {
		return fmt.Errorf("invalid grid %dx%d", p.Rows, p.Cols)
	}
	if len(p.Tiles) != p.Rows*p.Cols {
		return fmt.Errorf("%dx%d grid lists %d tiles", p.Rows, p.Cols, len(p.Tiles))
	}
	for i, t := range p.Tiles {
		if t.Index != i {
			return fmt.Errorf("tile %d out of order (index %d)", i, t.Index)
		}
	}
	return nil
}

// Load loads positions from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p File
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// Save writes the positions to a YAML file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func relativeTo(path, image string) string {
	if image == "" {
		return ""
	}
	abs, err := filepath.Abs(image)
	if err != nil {
		return image
	}
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return image
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return image
	}
	return rel
}
