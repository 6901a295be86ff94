package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annel0/sprite-engine/internal/collision"
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

var (
	flagMassivityA string
	flagMassivityB string
	flagGhostA     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <typeA> <typeB>",
	Short: "Print the collision outcome of two sprite types in both directions",
	Long: `Place two overlapping sprites and ask the resolver how each one
treats the other. Type names are the ones used in scene files
(player, enemy, furball, moving_platform, ...).

Examples:
  engine validate player enemy
  engine validate player sprite --massivity-b half_massive`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&flagMassivityA, "massivity-a", "", "Massivity of the first sprite (default: type default)")
	validateCmd.Flags().StringVar(&flagMassivityB, "massivity-b", "", "Massivity of the second sprite (default: type default)")
	validateCmd.Flags().BoolVar(&flagGhostA, "ghost-a", false, "Make the first sprite a ghost")
}

func runValidate(_ *cobra.Command, args []string) error {
	manager := entity.NewEntityManager()

	a, err := createProbe(manager, args[0], flagMassivityA, vec.Vec2Float{})
	if err != nil {
		return err
	}
	a.Ghost = flagGhostA
	b, err := createProbe(manager, args[1], flagMassivityB, vec.Vec2Float{X: 16})
	if err != nil {
		return err
	}

	resolver := collision.NewResolver(engineConfig.Engine.OnTopTolerance)
	fmt.Printf("%s (%s) -> %s (%s): %s\n", a.Type, a.Massivity, b.Type, b.Massivity, resolver.Validate(a, b))
	fmt.Printf("%s (%s) -> %s (%s): %s\n", b.Type, b.Massivity, a.Type, a.Massivity, resolver.Validate(b, a))
	return nil
}

func createProbe(manager *entity.EntityManager, typeName, massivity string, pos vec.Vec2Float) (*entity.Entity, error) {
	t, err := entity.ParseSpriteType(typeName)
	if err != nil {
		return nil, err
	}
	opts := entity.Options{
		Position: pos,
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	}
	if t == entity.TypePlayer {
		opts.UID = entity.WithUID(entity.PlayerUID)
	}
	if massivity != "" {
		m, err := physics.ParseMassivity(massivity)
		if err != nil {
			return nil, err
		}
		opts.Massivity = entity.WithMassivity(m)
	}
	return manager.Create(t, opts)
}
