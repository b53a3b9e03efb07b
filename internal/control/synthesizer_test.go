package control_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/optim"
)

var _ = Describe("Synthesizer", func() {
	var (
		ctx   context.Context
		synth *control.Synthesizer
		plant lti.TransferFunction
	)

	BeforeEach(func() {
		ctx = context.Background()
		synth = control.NewSynthesizer()
		plant = lti.MustNew([]float64{1}, []float64{1, -2})
	})

	Context("with the unstable first-order plant 1/(s-2)", func() {
		It("finds the gain that settles in the target time", func() {
			res, err := synth.Synthesize(ctx, plant, 2, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Controlled).NotTo(BeNil())

			// ts = ln(50)/(Kp-2)
			Expect(res.Gain).To(BeNumerically("~", 2+math.Log(50)/2, 0.02))
			Expect(lti.IsStable(*res.Controlled)).To(BeTrue())
			Expect(res.Diagnostics.Converged).To(BeTrue())
			Expect(res.Diagnostics.Achieved).NotTo(BeNil())
			Expect(res.Diagnostics.Achieved.SettlingTime).To(BeNumerically("~", 2, 0.1))
			Expect(res.Diagnostics.Attempts).To(BeNumerically("<=", synth.Solver.MaxAttempts))
		})

		It("warns that the uncontrolled loop is unstable", func() {
			res, err := synth.Synthesize(ctx, plant, 2, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Diagnostics.Warnings).To(ContainElement(control.WarnUnstable))
			Expect(res.Diagnostics.Original).To(BeNil())
		})

		It("is deterministic", func() {
			a, err := synth.Synthesize(ctx, plant, 2, false)
			Expect(err).NotTo(HaveOccurred())
			b, err := control.NewSynthesizer().Synthesize(ctx, plant, 2, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Gain).To(BeNumerically("~", b.Gain, 1e-6))
		})

		It("gives the same gain when handed the closed loop", func() {
			open, err := synth.Synthesize(ctx, plant, 2, false)
			Expect(err).NotTo(HaveOccurred())
			closed, err := synth.Synthesize(ctx, lti.Feedback(plant), 2, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(closed.Gain).To(BeNumerically("~", open.Gain, 1e-6))
			Expect(closed.Original.Den()).To(Equal(lti.Feedback(plant).Den()))
		})
	})

	It("does not warn for a stable plant", func() {
		stable := lti.MustNew([]float64{1}, []float64{1, 1})
		res, err := synth.Synthesize(ctx, stable, 1, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Diagnostics.Warnings).NotTo(ContainElement(control.WarnUnstable))
		Expect(res.Diagnostics.Original).NotTo(BeNil())
		// ts = ln(50)/(1+Kp)
		Expect(res.Gain).To(BeNumerically("~", math.Log(50)-1, 0.02))
	})

	It("settles for the nearest gain when the target is out of reach", func() {
		// ts = ln(50)/(1+Kp) never exceeds ln(50)
		stable := lti.MustNew([]float64{1}, []float64{1, 1})
		synth.Solver.MaxAttempts = 3

		res, err := synth.Synthesize(ctx, stable, 100, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Controlled).NotTo(BeNil())
		Expect(res.Gain).To(BeNumerically("<", 0.05))
		Expect(res.Diagnostics.Cost).To(BeNumerically(">", 90))
		Expect(res.Diagnostics.Attempts).To(BeNumerically("<=", 3))
	})

	It("reports failure when no gain stabilizes the loop", func() {
		// closed-loop pole at 2+Kp for every positive gain
		wrongSign := lti.MustNew([]float64{-1}, []float64{1, -2})
		synth.Solver.MaxAttempts = 2
		synth.Solver.Global = optim.NewGridSearch(40)

		res, err := synth.Synthesize(ctx, wrongSign, 2, false)
		Expect(err).To(MatchError(control.ErrSynthesisFailed))
		Expect(res).NotTo(BeNil())
		Expect(res.Controlled).To(BeNil())

		var synthErr *control.SynthesisError
		Expect(errors.As(err, &synthErr)).To(BeTrue())
		Expect(synthErr.Attempts).To(Equal(2))
		Expect(synthErr.BestCost).To(Equal(control.PenaltyCost))
		Expect(err.Error()).To(ContainSubstring("best cost"))
	})

	DescribeTable("rejects invalid input before searching",
		func(g lti.TransferFunction, target float64, closed bool, cause error) {
			res, err := synth.Synthesize(ctx, g, target, closed)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(control.ErrInvalidInput))
			if cause != nil {
				Expect(err).To(MatchError(cause))
			}
		},
		Entry("zero target", lti.MustNew([]float64{1}, []float64{1, 1}), 0.0, false, nil),
		Entry("negative target", lti.MustNew([]float64{1}, []float64{1, 1}), -1.0, false, nil),
		Entry("NaN target", lti.MustNew([]float64{1}, []float64{1, 1}), math.NaN(), false, nil),
		Entry("empty plant", lti.TransferFunction{}, 1.0, false, lti.ErrInvalidSystem),
		Entry("improper plant", lti.MustNew([]float64{1, 0, 0}, []float64{1, 1}), 1.0, false, lti.ErrImproper),
		Entry("singular closed loop", lti.Gain(1), 1.0, true, lti.ErrSingularInverse),
		Entry("feedback cancels the plant", lti.Gain(-1), 2.0, false, lti.ErrInvalidSystem),
	)

	It("rejects invalid bounds", func() {
		synth.Bounds = optim.Bounds{Lo: 10, Hi: 1}
		_, err := synth.Synthesize(ctx, plant, 2, false)
		Expect(err).To(MatchError(optim.ErrInvalidBounds))
	})

	It("can run concurrently", func() {
		gains := make(chan float64, 4)
		for range 4 {
			go func() {
				defer GinkgoRecover()
				res, err := synth.Synthesize(ctx, plant, 2, false)
				Expect(err).NotTo(HaveOccurred())
				gains <- res.Gain
			}()
		}
		first := <-gains
		for range 3 {
			Expect(<-gains).To(BeNumerically("~", first, 1e-9))
		}
	})
})
