package progression

import "math"

// Curve maps cumulative XP to a level. Level 1 starts at 0 XP and level L
// needs BaseXP*(L-1)^Exponent.
type Curve struct {
	BaseXP   int     `yaml:"base_xp"`
	Exponent float64 `yaml:"exponent"`
}

// DefaultCurve is the curve used when none is configured.
func DefaultCurve() Curve {
	return Curve{BaseXP: 100, Exponent: 1.5}
}

func (c Curve) normalized() Curve {
	if c.BaseXP <= 0 {
		c.BaseXP = 100
	}
	if c.Exponent < 1 {
		c.Exponent = 1
	}
	return c
}

// XPForLevel returns the XP at which level is reached.
func (c Curve) XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	c = c.normalized()
	return int(math.Round(float64(c.BaseXP) * math.Pow(float64(level-1), c.Exponent)))
}

// LevelFor returns the highest level whose threshold xp meets.
func (c Curve) LevelFor(xp int) int {
	level := 1
	for c.XPForLevel(level+1) <= xp {
		level++
	}
	return level
}
