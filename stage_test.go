package rowpipe_test

import (
	"strings"
	"testing"

	"github.com/fogfactory/rowpipe"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

// reverse returns a reversed copy of s, leaving s untouched.
func reverse[T any](s []T) []T {
	return lo.Map(s, func(_ T, i int) T { return s[len(s)-1-i] })
}

func upper(s []string) []string {
	return lo.Map(s, func(e string, _ int) string { return strings.ToUpper(e) })
}

// testRegistry is the registry used by the pipeline tests: payloads are rows of strings.
func testRegistry() rowpipe.Registry[[]string] {
	return rowpipe.Registry[[]string]{
		"REVERSE_ROW": reverse[string],
		"UPPER":       upper,
	}
}

func TestStages(t *testing.T) {

	t.Run("error_unknown_stage", func(t *testing.T) {
		// Arrange
		registry := testRegistry()

		// Act
		stages, err := registry.Resolve("REVERSE_ROW", "BLUR")

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrUnknownStage)
		td.CmpContains(t, err, `"BLUR"`)
		td.CmpNil(t, stages)
	})

	t.Run("error_nil_transform", func(t *testing.T) {
		// Arrange
		registry := rowpipe.Registry[int]{"NOOP": nil}

		// Act
		_, err := registry.Resolve("NOOP")

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrUnknownStage)
	})

	t.Run("success_resolve_in_order", func(t *testing.T) {
		// Arrange
		registry := testRegistry()

		// Act
		stages, err := registry.Resolve("UPPER", "REVERSE_ROW", "UPPER")

		// Assert
		td.CmpNoError(t, err)
		td.Cmp(t, lo.Map(stages, func(s rowpipe.Stage[[]string], _ int) rowpipe.StageID { return s.ID }),
			[]rowpipe.StageID{"UPPER", "REVERSE_ROW", "UPPER"})
		td.Cmp(t, registry.IDs(), []rowpipe.StageID{"REVERSE_ROW", "UPPER"})
	})

	t.Run("success_link", func(t *testing.T) {
		// Arrange
		double := func(i int) int { return i * 2 }
		inc := func(i int) int { return i + 1 }

		// Act
		linked := rowpipe.Link[int](double, inc, double)

		// Assert
		td.Cmp(t, linked(10), 42)
		td.Cmp(t, rowpipe.Link[int]()(7), 7, "empty link is the identity")
	})

	t.Run("success_run_serial", func(t *testing.T) {
		// Arrange
		stages, err := testRegistry().Resolve("REVERSE_ROW", "UPPER")
		td.Require(t).CmpNoError(err)
		input := []rowpipe.Unit[[]string]{
			{{"a", "b", "c"}, {"d", "e", "f"}},
			{{"g", "h"}},
		}

		// Act
		results := rowpipe.RunSerial(input, stages)

		// Assert
		td.Cmp(t, results, []rowpipe.Unit[[]string]{
			{{"C", "B", "A"}, {"F", "E", "D"}},
			{{"H", "G"}},
		})
		td.Cmp(t, input[0][0], []string{"a", "b", "c"}, "input left untouched")
	})
}

func TestValidateUnits(t *testing.T) {
	size := func(row []string) int { return len(row) }

	t.Run("error_empty_unit", func(t *testing.T) {
		// Act
		err := rowpipe.ValidateUnits([]rowpipe.Unit[[]string]{{{"a"}}, {}}, size)

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrInvalidUnit)
		td.CmpContains(t, err, "unit 1 has no items")
	})

	t.Run("error_mismatched_sizes", func(t *testing.T) {
		// Act
		err := rowpipe.ValidateUnits([]rowpipe.Unit[[]string]{{{"a", "b"}, {"c", "d"}, {"e"}}}, size)

		// Assert
		td.CmpErrorIs(t, err, rowpipe.ErrInvalidUnit)
		td.CmpContains(t, err, "unit 0 item 2 has size 1")
	})

	t.Run("success_without_size", func(t *testing.T) {
		// Act
		err := rowpipe.ValidateUnits([]rowpipe.Unit[[]string]{{{"a", "b"}, {"c"}}}, nil)

		// Assert
		td.CmpNoError(t, err)
	})
}
