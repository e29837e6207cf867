package scoring

import (
	"encoding/json"
	"os"

	"github.com/jonathan/job-alerts/internal/schemas"
)

// Dictionary is a versioned mapping from category to match patterns.
type Dictionary struct {
	Version    string     `json:"version"`
	TargetTag  string     `json:"target_tag"`
	Categories []Category `json:"categories"`
	// Contracts are checked in order against the folded contract type; the first match wins.
	Contracts []Contract `json:"contracts,omitempty"`
	// Distance bands apply only when the scorer has a base location.
	Distance  []DistanceBand `json:"distance,omitempty"`
	Relevance *Relevance     `json:"relevance,omitempty"`
}

// Category groups terms that share a weight and a tag.
type Category struct {
	Name   string  `json:"name"`
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
	// TagTerms adds one tag per matched term in addition to the category tag.
	TagTerms bool   `json:"tag_terms,omitempty"`
	Terms    []Term `json:"terms"`
}

// Term is one dictionary entry. Pattern is a regular expression over folded text;
// when empty the folded, quoted Name is used.
type Term struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

// Contract weights a contract type, e.g. CDI over an internship.
type Contract struct {
	Match  string  `json:"match"`
	Weight float64 `json:"weight"`
}

// DistanceBand adds Weight when a posting lies within WithinKm of the base
// location. Only the nearest matching band counts.
type DistanceBand struct {
	WithinKm float64 `json:"within_km"`
	Weight   float64 `json:"weight"`
}

// Relevance gates ingestion. Patterns are matched like category terms; a posting
// is relevant when it matches one MustAny pattern (if any are listed) and no
// Exclude pattern.
type Relevance struct {
	MustAny []string `json:"must_any,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// LoadDictionary reads and schema-validates a dictionary file.
func LoadDictionary(path string) (Dictionary, error) {
	if err := schemas.ValidateDictionaryFile(path); err != nil {
		return Dictionary{}, &DictionaryError{Path: path, Message: "schema validation failed", Cause: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, &DictionaryError{Path: path, Message: "failed to read file", Cause: err}
	}

	var d Dictionary
	if err := json.Unmarshal(data, &d); err != nil {
		return Dictionary{}, &DictionaryError{Path: path, Message: "failed to unmarshal", Cause: err}
	}
	return d, nil
}

// DefaultDictionary returns the built-in robotics profile: a junior ROS/C++
// robotics engineer open to automation and vision roles.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Version:   "robotics-2025.1",
		TargetTag: TagCoreRobotics,
		Categories: []Category{
			{
				Name: "core_robotics", Tag: TagCoreRobotics, Weight: 1.5,
				Terms: []Term{
					{Name: "robotique", Pattern: `robotiques?`},
					{Name: "robotics"},
					{Name: "robot", Pattern: `robots?`},
					{Name: "roboticien", Pattern: `roboticien(?:ne)?s?`},
					{Name: "cobot", Pattern: `cobots?`},
					{Name: "ros", Pattern: `ros2?`},
					{Name: "slam"},
					{Name: "manipulateur", Pattern: `manipulat(?:eur|rice)s?`},
					{Name: "navigation autonome"},
				},
			},
			{
				Name: "ros_stack", Tag: "ROS_STACK", Weight: 1.0, TagTerms: true,
				Terms: []Term{
					{Name: "ros2"},
					{Name: "moveit"},
					{Name: "gazebo"},
					{Name: "nav2"},
					{Name: "urdf", Pattern: `urdf|xacro`},
					{Name: "rclcpp", Pattern: `rclcpp|rclpy`},
					{Name: "colcon"},
				},
			},
			{
				Name: "seniority_junior", Tag: "SENIORITY_JUNIOR", Weight: 2.0,
				Terms: []Term{
					{Name: "junior", Pattern: `juniors?`},
					{Name: "debutant", Pattern: `debutante?s?(?: acceptee?s?)?`},
					{Name: "jeune diplome", Pattern: `jeunes? diplomee?s?`},
					{Name: "premiere experience", Pattern: `premiere experience|premier emploi`},
				},
			},
			{
				Name: "seniority_senior", Tag: "SENIORITY_SENIOR", Weight: -1.0,
				Terms: []Term{
					{Name: "senior", Pattern: `seniors?`},
					{Name: "lead", Pattern: `tech lead|lead`},
					{Name: "experience longue", Pattern: `(?:[5-9]|1[0-9]) ans`},
				},
			},
			{
				Name: "plc", Tag: "PLC", Weight: 0.5, TagTerms: true,
				Terms: []Term{
					{Name: "siemens", Pattern: `siemens|tia portal|step ?7`, Tag: "PLC_SIEMENS"},
					{Name: "beckhoff", Pattern: `beckhoff|twincat`, Tag: "PLC_BECKHOFF"},
					{Name: "rockwell", Pattern: `rockwell|allen[ -]?bradley|studio ?5000`, Tag: "PLC_ROCKWELL"},
					{Name: "schneider", Pattern: `schneider|unity pro|somachine`, Tag: "PLC_SCHNEIDER"},
					{Name: "automate", Pattern: `automates? programmables?|plc|grafcet`, Tag: "PLC_GENERIC"},
				},
			},
			{
				Name: "vision", Tag: "VISION", Weight: 0.75, TagTerms: true,
				Terms: []Term{
					{Name: "opencv"},
					{Name: "halcon"},
					{Name: "cognex"},
					{Name: "keyence"},
					{Name: "pcl", Pattern: `pcl|point cloud library`},
					{Name: "vision industrielle", Pattern: `vision (?:industrielle|artificielle)`},
				},
			},
			{
				Name: "robot_brands", Tag: "ROBOT_BRAND", Weight: 0.5, TagTerms: true,
				Terms: []Term{
					{Name: "fanuc"},
					{Name: "abb"},
					{Name: "kuka"},
					{Name: "staubli"},
					{Name: "yaskawa", Pattern: `yaskawa|motoman`},
					{Name: "universal robots", Pattern: `universal robots?`},
					{Name: "doosan"},
				},
			},
			{
				Name: "languages", Tag: "LANG", Weight: 1.0, TagTerms: true,
				Terms: []Term{
					{Name: "c++", Pattern: `c\+\+|cpp`},
					{Name: "python"},
				},
			},
			{
				Name: "sensors", Tag: "SENSORS", Weight: 0.25, TagTerms: true,
				Terms: []Term{
					{Name: "lidar", Pattern: `lidars?`},
					{Name: "camera 3d", Pattern: `cameras? 3d|rgb-?d|stereo`},
					{Name: "imu", Pattern: `imu|centrale inertielle`},
				},
			},
		},
		Contracts: []Contract{
			{Match: "cdi", Weight: 1.0},
			{Match: "cdd", Weight: 0.5},
			{Match: "alternance", Weight: 0.25},
			{Match: "stage", Weight: 0.25},
		},
		Distance: []DistanceBand{
			{WithinKm: 20, Weight: 1.5},
			{WithinKm: 50, Weight: 0.8},
			{WithinKm: 100, Weight: 0.3},
		},
		Relevance: &Relevance{
			MustAny: []string{
				`ros2?`, `robot(?:ique|ics)?s?`, `roboticien(?:ne)?s?`, `cobots?`,
				`vision`, `c\+\+`, `perception`, `navigation`, `slam`, `opencv`, `moveit`,
				`automaticien(?:ne)?s?`, `automatismes?`,
			},
			Exclude: []string{
				`(?:technico-)?commercia(?:l|le|les|ux)`, `vendeu(?:r|se)s?`, `chauffeu(?:r|se)s?`,
				`serveu(?:r|se)s?`, `logistique`,
			},
		},
	}
}
