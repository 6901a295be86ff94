// Package scene загружает YAML-фикстуры сцен для CLI: набор сущностей,
// скрипт уровня и параметры прогона.
package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

const (
	// DefaultFrames - число кадров прогона по умолчанию
	DefaultFrames = 60
	// DefaultSize - сторона спрайта, если w/h не заданы
	DefaultSize = 32
)

// ErrInvalidScene оборачивает все ошибки разбора сцены
var ErrInvalidScene = errors.New("invalid scene")

// EntitySpec описывает сущность в файле сцены
type EntitySpec struct {
	UID       *uint64 `yaml:"uid"`
	Type      string  `yaml:"type"`
	Massivity string  `yaml:"massivity"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Z         float64 `yaml:"z"`
	W         float64 `yaml:"w"`
	H         float64 `yaml:"h"`
	VX        float64 `yaml:"vx"`
	VY        float64 `yaml:"vy"`
	Ghost     bool    `yaml:"ghost"`
	Spawned   bool    `yaml:"spawned"`
	Inactive  bool    `yaml:"inactive"`

	spriteType entity.SpriteType
	massivity  *physics.Massivity
}

// Scene - разобранный и проверенный файл сцены
type Scene struct {
	Name     string       `yaml:"name"`
	Script   string       `yaml:"script"` // путь к .lua или исходник целиком
	Frames   int          `yaml:"frames"`
	DT       float64      `yaml:"dt"`
	Entities []EntitySpec `yaml:"entities"`

	scriptName   string
	scriptSource string
}

// Load читает сцену из файла
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение сцены %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse разбирает сцену; относительный путь скрипта берётся от baseDir
func Parse(data []byte, baseDir string) (*Scene, error) {
	var sc Scene
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}

	if sc.Name == "" {
		sc.Name = "scene"
	}
	if sc.Frames <= 0 {
		sc.Frames = DefaultFrames
	}
	if sc.DT <= 0 {
		sc.DT = world.DefaultFrameTime.Seconds()
	}

	if err := sc.resolveScript(baseDir); err != nil {
		return nil, err
	}
	for i := range sc.Entities {
		if err := sc.Entities[i].validate(); err != nil {
			return nil, fmt.Errorf("%w: entity #%d: %v", ErrInvalidScene, i, err)
		}
	}
	return &sc, nil
}

// resolveScript отличает встроенный исходник (многострочный) от пути к файлу
func (sc *Scene) resolveScript(baseDir string) error {
	script := strings.TrimSpace(sc.Script)
	switch {
	case script == "":
		return nil
	case strings.Contains(script, "\n"):
		sc.scriptName = sc.Name
		sc.scriptSource = sc.Script
		return nil
	}

	path := script
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: script: %v", ErrInvalidScene, err)
	}
	sc.scriptName = filepath.Base(path)
	sc.scriptSource = string(src)
	return nil
}

func (e *EntitySpec) validate() error {
	t, err := entity.ParseSpriteType(e.Type)
	if err != nil {
		return err
	}
	e.spriteType = t

	if e.Massivity != "" {
		m, err := physics.ParseMassivity(e.Massivity)
		if err != nil {
			return err
		}
		e.massivity = &m
	}

	if t == entity.TypePlayer {
		if e.UID == nil {
			e.UID = entity.WithUID(entity.PlayerUID)
		} else if *e.UID != entity.PlayerUID {
			return fmt.Errorf("player must use uid %d, got %d", entity.PlayerUID, *e.UID)
		}
	}

	if e.W < 0 || e.H < 0 {
		return fmt.Errorf("negative size %gx%g", e.W, e.H)
	}
	if e.W == 0 {
		e.W = DefaultSize
	}
	if e.H == 0 {
		e.H = DefaultSize
	}
	return nil
}

// HasScript сообщает, задан ли скрипт уровня
func (sc *Scene) HasScript() bool {
	return sc.scriptSource != ""
}

// Build создаёт уровень, спавнит сущности и загружает скрипт.
// Пустое cfg.Name заменяется именем сцены.
func (sc *Scene) Build(cfg world.LevelConfig, deps world.Deps) (*world.Level, error) {
	if cfg.Name == "" {
		cfg.Name = sc.Name
	}
	l := world.NewLevel(cfg, deps)

	// Сначала сущности с явным UID, чтобы автоматические их не заняли
	for _, explicit := range []bool{true, false} {
		for i, spec := range sc.Entities {
			if (spec.UID != nil) != explicit {
				continue
			}
			if err := spawn(l, spec); err != nil {
				l.Close()
				return nil, fmt.Errorf("спавн сущности #%d (%s): %w", i, spec.Type, err)
			}
		}
	}

	if sc.HasScript() {
		if err := l.LoadScript(sc.scriptName, sc.scriptSource); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func spawn(l *world.Level, spec EntitySpec) error {
	_, err := l.Spawn(spec.spriteType, entity.Options{
		UID:       spec.UID,
		Massivity: spec.massivity,
		Position:  vec.Vec2Float{X: spec.X, Y: spec.Y},
		Z:         spec.Z,
		Velocity:  vec.Vec2Float{X: spec.VX, Y: spec.VY},
		Size:      vec.Vec2Float{X: spec.W, Y: spec.H},
		Ghost:     spec.Ghost,
		Spawned:   spec.Spawned,
		Active:    !spec.Inactive,
	})
	return err
}
