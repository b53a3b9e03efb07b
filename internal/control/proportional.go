package control

import (
	"github.com/san-kum/ptune/internal/dynamo"
	"github.com/san-kum/ptune/internal/lti"
)

// Proportional computes u = Kp·(ref - y).
type Proportional struct {
	Kp float64
}

func NewProportional(kp float64) *Proportional {
	return &Proportional{Kp: kp}
}

func (p *Proportional) Compute(y, ref, t float64) dynamo.Control {
	return dynamo.Control{p.Kp * (ref - y)}
}

func (p *Proportional) TransferFunction() lti.TransferFunction {
	return PGain(p.Kp)
}
