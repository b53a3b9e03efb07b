// Package control tunes and runs proportional controllers for LTI plants.
//
// The tuning pipeline has two parts:
//
//   - [Cost]: scores a candidate gain by the distance of the closed-loop
//     settling time from the target, with [PenaltyCost] for non-positive
//     gains, unstable loops and responses that cannot be characterized
//   - [Synthesizer]: normalizes the plant to open-loop form, searches for the
//     gain with an [optim.Solver] and assembles the controlled loop
//
// [Proportional] is the matching time-domain controller; it implements
// [dynamo.Controller] so a tuned gain can be verified in closed-loop
// simulation.
//
// # Usage
//
//	plant := lti.MustNew([]float64{1}, []float64{1, -2})
//	res, err := control.NewSynthesizer().Synthesize(ctx, plant, 2.0, false)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Gain, res.Controlled)
//
// # Thread Safety
//
// Cost and Synthesize keep no shared mutable state; a Synthesizer may be used
// from several goroutines at once.
package control
