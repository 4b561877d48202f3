package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/prompts"

	"poemchain/apperr"
	"poemchain/prompt"
)

func poemTemplate(t *testing.T) *prompt.Template {
	t.Helper()

	tpl, err := prompt.New(prompt.Config{
		InputVariables: []string{"topic"},
		Template:       "Write a short poem about {topic}.",
	})
	require.NoError(t, err)

	return tpl
}

func TestRender_SubstitutesDeclaredVariable(t *testing.T) {
	tpl := poemTemplate(t)

	out, err := tpl.Render(map[string]string{"topic": "autumn"})
	require.NoError(t, err)
	assert.Equal(t, "Write a short poem about autumn.", out)
}

func TestRender_MissingVariable(t *testing.T) {
	tpl := poemTemplate(t)

	out, err := tpl.Render(map[string]string{})
	require.ErrorIs(t, err, apperr.ErrMissingVariable)
	assert.Empty(t, out)

	var missing *apperr.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"topic"}, missing.Variables)
}

func TestRender_ReportsAllMissingInDeclaredOrder(t *testing.T) {
	tpl, err := prompt.New(prompt.Config{
		InputVariables: []string{"mood", "topic", "form"},
		Template:       "Write a {mood} {form} about {topic}.",
	})
	require.NoError(t, err)

	_, err = tpl.Render(map[string]string{"topic": "rain"})

	var missing *apperr.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"mood", "form"}, missing.Variables)
}

func TestRender_EmptyValueIsSupplied(t *testing.T) {
	tpl := poemTemplate(t)

	out, err := tpl.Render(map[string]string{"topic": ""})
	require.NoError(t, err)
	assert.Equal(t, "Write a short poem about .", out)
}

func TestRender_IgnoresExtraValues(t *testing.T) {
	tpl := poemTemplate(t)

	out, err := tpl.Render(map[string]string{"topic": "the sea", "style": "haiku"})
	require.NoError(t, err)
	assert.Equal(t, "Write a short poem about the sea.", out)
}

func TestRender_RepeatedPlaceholderAndEscapes(t *testing.T) {
	tpl, err := prompt.New(prompt.Config{
		InputVariables: []string{"word"},
		Template:       "{word}, {word}! Use {{braces}} like }}this{{.",
	})
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"word": "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo, echo! Use {braces} like }this{.", out)
}

func TestRender_ValueIsNotReinterpreted(t *testing.T) {
	tpl := poemTemplate(t)

	out, err := tpl.Render(map[string]string{"topic": "{topic}"})
	require.NoError(t, err)
	assert.Equal(t, "Write a short poem about {topic}.", out)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  prompt.Config
	}{
		{
			name: "undeclared placeholder",
			cfg:  prompt.Config{InputVariables: []string{"topic"}, Template: "A poem about {topic} in {style}."},
		},
		{
			name: "unused declared variable",
			cfg:  prompt.Config{InputVariables: []string{"topic", "style"}, Template: "A poem about {topic}."},
		},
		{
			name: "duplicate declared variable",
			cfg:  prompt.Config{InputVariables: []string{"topic", "topic"}, Template: "A poem about {topic}."},
		},
		{
			name: "invalid declared name",
			cfg:  prompt.Config{InputVariables: []string{"my topic"}, Template: "A poem."},
		},
		{
			name: "empty template",
			cfg:  prompt.Config{Template: "   "},
		},
		{
			name: "unclosed brace",
			cfg:  prompt.Config{InputVariables: []string{"topic"}, Template: "A poem about {topic"},
		},
		{
			name: "stray closing brace",
			cfg:  prompt.Config{Template: "A poem }"},
		},
		{
			name: "empty placeholder",
			cfg:  prompt.Config{Template: "A poem about {}."},
		},
		{
			name: "format directive placeholder",
			cfg:  prompt.Config{InputVariables: []string{"topic"}, Template: "A poem about {topic:>10}."},
		},
		{
			name: "partial overlapping input",
			cfg: prompt.Config{
				InputVariables:   []string{"topic"},
				PartialVariables: map[string]string{"topic": "x"},
				Template:         "{topic}",
			},
		},
		{
			name: "unused partial",
			cfg: prompt.Config{
				InputVariables:   []string{"topic"},
				PartialVariables: map[string]string{"style": "x"},
				Template:         "{topic}",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := prompt.New(tt.cfg)
			require.ErrorIs(t, err, apperr.ErrConfiguration)
			assert.Nil(t, tpl)
		})
	}
}

func TestNew_NoPlaceholders(t *testing.T) {
	tpl, err := prompt.New(prompt.Config{Template: "Write any poem."})
	require.NoError(t, err)
	assert.Empty(t, tpl.InputVariables())

	out, err := tpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Write any poem.", out)
}

func TestNew_CopiesInputs(t *testing.T) {
	vars := []string{"topic"}
	tpl, err := prompt.New(prompt.Config{InputVariables: vars, Template: "{topic}"})
	require.NoError(t, err)

	vars[0] = "changed"
	assert.Equal(t, []string{"topic"}, tpl.InputVariables())

	got := tpl.InputVariables()
	got[0] = "mutated"
	assert.Equal(t, []string{"topic"}, tpl.InputVariables())
}

func TestFromText_InfersVariablesInOrder(t *testing.T) {
	tpl, err := prompt.FromText("A {form} about {topic}, then another {form} in {{braces}}.")
	require.NoError(t, err)
	assert.Equal(t, []string{"form", "topic"}, tpl.InputVariables())
	assert.Equal(t, "A {form} about {topic}, then another {form} in {{braces}}.", tpl.Text())
}

func TestPlaceholders_Error(t *testing.T) {
	_, err := prompt.Placeholders("oops {")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestPartial(t *testing.T) {
	tpl, err := prompt.FromText("Write a {form} about {topic}.")
	require.NoError(t, err)

	haiku, err := tpl.Partial(map[string]string{"form": "haiku"})
	require.NoError(t, err)

	assert.Equal(t, []string{"topic"}, haiku.InputVariables())
	assert.Equal(t, map[string]string{"form": "haiku"}, haiku.PartialVariables())
	assert.Equal(t, []string{"form", "topic"}, tpl.InputVariables())

	out, err := haiku.Render(map[string]string{"topic": "snow"})
	require.NoError(t, err)
	assert.Equal(t, "Write a haiku about snow.", out)

	out, err = haiku.Render(map[string]string{"topic": "snow", "form": "limerick"})
	require.NoError(t, err)
	assert.Equal(t, "Write a limerick about snow.", out)

	_, err = tpl.Render(map[string]string{"topic": "snow"})
	assert.ErrorIs(t, err, apperr.ErrMissingVariable)
}

func TestPartial_UnknownVariable(t *testing.T) {
	tpl := poemTemplate(t)

	_, err := tpl.Partial(map[string]string{"style": "free verse"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		prompt.MustNew(prompt.Config{Template: "{topic}"})
	})
}

func TestNewInferred_SkipsPartials(t *testing.T) {
	tpl, err := prompt.NewInferred(prompt.Config{
		Template:         "A {form} about {topic}.",
		PartialVariables: map[string]string{"form": "ballad"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"topic"}, tpl.InputVariables())

	explicit, err := prompt.NewInferred(prompt.Config{
		InputVariables: []string{"topic"},
		Template:       "A {form} about {topic}.",
	})
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Nil(t, explicit)
}

func TestRender_PlaceholderWhitespaceIsTrimmed(t *testing.T) {
	tpl, err := prompt.FromText("A poem about { topic }.")
	require.NoError(t, err)
	assert.Equal(t, []string{"topic"}, tpl.InputVariables())

	out, err := tpl.Render(map[string]string{"topic": "dusk"})
	require.NoError(t, err)
	assert.Equal(t, "A poem about dusk.", out)
}

func TestLangChain_FormatsLikeRender(t *testing.T) {
	tpl, err := prompt.NewInferred(prompt.Config{
		Template:         "Write a {form} about {topic}, {{quietly}}.",
		PartialVariables: map[string]string{"form": "sonnet"},
	})
	require.NoError(t, err)

	lc := tpl.LangChain()
	assert.Equal(t, prompts.TemplateFormatFString, lc.TemplateFormat)
	assert.Equal(t, []string{"topic"}, lc.GetInputVariables())

	want, err := tpl.Render(map[string]string{"topic": "ice"})
	require.NoError(t, err)
	assert.Equal(t, "Write a sonnet about ice, {quietly}.", want)

	got, err := lc.Format(map[string]any{"topic": "ice"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
