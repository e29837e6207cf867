package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"accents and case", "Ingénieur Robotique H/F", "ingenieur robotique h/f"},
		{"ros 2 merge", "Expérience ROS 2 requise", "experience ros2 requise"},
		{"moveit merge", "Move It 2 et Gazebo", "moveit et gazebo"},
		{"moveit followed by a word", "ROS2, MoveIt et Gazebo", "ros2, moveit et gazebo"},
		{"moveit then gazebo", "moveit gazebo", "moveit gazebo"},
		{"moveit2 glued", "MoveIt2 Nav2", "moveit nav2"},
		{"ros 2 followed by a word", "ROS 2 Humble", "ros2 humble"},
		{"twincat merge", "Beckhoff Twin CAT", "beckhoff twincat"},
		{"ligature", "Œuvre en cœur de métier", "oeuvre en coeur de metier"},
		{"c++ kept", "C++ / Python", "c++ / python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestFold_Idempotent(t *testing.T) {
	in := "Développeur ROS 2 — Vision industrielle (Cognex, Halcon)"
	once := Fold(in)
	assert.Equal(t, once, Fold(once))
}

func TestStripHTML(t *testing.T) {
	html := `<p>Vous rejoignez <b>notre équipe</b>.</p><ul><li>ROS2</li><li>C++</li></ul><script>var x=1;</script>`
	got := StripHTML(html)
	assert.Equal(t, "Vous rejoignez notre équipe.\nROS2\nC++", got)
}

func TestStripHTML_PlainText(t *testing.T) {
	assert.Equal(t, "ligne une\nligne deux", StripHTML("  ligne   une \n\n ligne deux  "))
}
