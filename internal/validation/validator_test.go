package validation_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimgen/internal/validation"
)

const blueCircle = `from manim import *

class BlueCircleAnimation(Scene):
    def construct(self):
        circle = Circle(color=BLUE, fill_opacity=0.7)
        self.play(GrowFromCenter(circle), run_time=1)
        self.play(circle.animate.shift(RIGHT * 3), run_time=1.5)
        self.wait()
`

func withLine(prefix string) string {
	return prefix + "\n" + blueCircle
}

func TestValidateAcceptsWellFormedScene(t *testing.T) {
	valid, msg := validation.Validate(blueCircle)
	assert.True(t, valid)
	assert.Equal(t, "Code validated successfully", msg)
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"import os", withLine("import os"), "Forbidden import: os"},
		{"dotted alias", withLine("import os.path as p"), "Forbidden import: os.path"},
		{"second name", withLine("import math, subprocess"), "Forbidden import: subprocess"},
		{"from import", withLine("from urllib.request import urlopen"), "Forbidden import: from urllib.request"},
		{"relative from import", withLine("from .os import path"), "Forbidden import: from .os"},
		{
			"nested import",
			strings.Replace(blueCircle, "        self.wait()", "        import pickle\n        self.wait()", 1),
			"Forbidden import: pickle",
		},
		{
			"eval call",
			strings.Replace(blueCircle, "        self.wait()", "        eval(\"1+1\")\n        self.wait()", 1),
			"Forbidden function: eval()",
		},
		{
			"dunder import",
			strings.Replace(blueCircle, "        self.wait()", "        __import__(\"socket\")\n        self.wait()", 1),
			"Forbidden function: __import__()",
		},
		{
			"missing import",
			strings.Replace(blueCircle, "from manim import *", "import manim", 1),
			"Missing 'from manim import' statement",
		},
		{
			"missing scene",
			strings.Replace(blueCircle, "(Scene)", "(VGroup)", 1),
			"Missing Scene class definition",
		},
		{
			"two scenes",
			blueCircle + "\nclass Second(ThreeDScene):\n    def construct(self):\n        self.wait()\n",
			"Multiple Scene classes defined: BlueCircleAnimation, Second",
		},
		{
			"construct shape",
			strings.Replace(blueCircle, "def construct(self):", "def construct(self, extra):", 1),
			"Missing construct method",
		},
		{
			"construct missing",
			strings.Replace(blueCircle, "def construct(self):", "def build(self):", 1),
			"Missing construct method",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := validation.Validate(tt.code)
			assert.False(t, valid)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestValidateAllowsAttributeCallsNamedLikeBuiltins(t *testing.T) {
	code := strings.Replace(blueCircle, "        self.wait()", "        self.camera.open()\n        self.wait()", 1)
	valid, msg := validation.Validate(code)
	assert.True(t, valid, msg)
}

func TestValidateAcceptsMultiBaseScenes(t *testing.T) {
	code := "from manim import *\n\nclass Mixin:\n    pass\n\nclass Orbit(Mixin, MovingCameraScene):\n    def construct(self):\n        self.wait()\n"
	valid, msg := validation.Validate(code)
	assert.True(t, valid, msg)
}

func TestValidateSyntaxError(t *testing.T) {
	valid, msg := validation.Validate("from manim import *\n\nclass Broken(Scene:\n    def construct(self):\n        self.wait()\n")
	assert.False(t, valid)
	assert.True(t, strings.HasPrefix(msg, "Syntax error: line "), msg)

	legacy := []struct {
		name   string
		body   string
		prefix string
	}{
		{"print statement", "        print \"hi\"\n", "Syntax error: line 5: print statement"},
		{"not-equal operator", "        if 1 <> 2:\n            self.wait()\n", "Syntax error: line 5: '<>'"},
		{"exec statement", "        exec \"x = 1\"\n", "Syntax error: line "},
	}
	for _, tt := range legacy {
		t.Run(tt.name, func(t *testing.T) {
			code := "from manim import *\n\nclass A(Scene):\n    def construct(self):\n" + tt.body
			valid, msg := validation.Validate(code)
			assert.False(t, valid)
			assert.True(t, strings.HasPrefix(msg, tt.prefix), msg)
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	inputs := []string{blueCircle, withLine("import os"), "not python at all ((("}
	for _, input := range inputs {
		firstValid, firstMsg := validation.Validate(input)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				valid, msg := validation.Validate(input)
				assert.Equal(t, firstValid, valid)
				assert.Equal(t, firstMsg, msg)
			}()
		}
		wg.Wait()
	}
}

func TestSceneClassName(t *testing.T) {
	name, err := validation.SceneClassName(blueCircle)
	require.NoError(t, err)
	assert.Equal(t, "BlueCircleAnimation", name)

	name, err = validation.SceneClassName("class Spin( ThreeDScene ):\n    pass")
	require.NoError(t, err)
	assert.Equal(t, "Spin", name)

	_, err = validation.SceneClassName("class Helper(VGroup):\n    pass")
	require.Error(t, err)
	assert.Equal(t, "Could not find Scene class in code", err.Error())
}

func TestEnumeratedSets(t *testing.T) {
	assert.Equal(t, []string{"ctypes", "multiprocessing", "os", "pickle", "pty", "requests", "shutil", "socket", "subprocess", "sys", "urllib"}, validation.DeniedModules())
	assert.Equal(t, []string{"__import__", "compile", "eval", "exec", "open"}, validation.DeniedCallables())
	assert.Equal(t, []string{"Scene", "ThreeDScene", "MovingCameraScene"}, validation.SceneBases())
	assert.True(t, validation.IsDeniedModule("os"))
	assert.False(t, validation.IsDeniedModule("os.path"))
	assert.False(t, validation.IsSceneBase("scene"))
}
