package control_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/dynamo"
	"github.com/san-kum/ptune/internal/lti"
)

var _ = Describe("Cost", func() {
	var (
		unstable lti.TransferFunction
		opts     lti.Options
	)

	BeforeEach(func() {
		unstable = lti.MustNew([]float64{1}, []float64{1, -2})
		opts = lti.DefaultOptions()
	})

	DescribeTable("penalizes infeasible gains",
		func(kp float64) {
			Expect(control.Cost(kp, unstable, 2, opts)).To(Equal(control.PenaltyCost))
		},
		Entry("zero", 0.0),
		Entry("negative", -3.0),
		Entry("NaN", math.NaN()),
		Entry("infinite", math.Inf(1)),
		Entry("too small to stabilize", 1.0),
		Entry("marginal", 2.0),
	)

	It("scores a stabilizing gain by the settling-time error", func() {
		// closed loop 5/(s+3): ts = ln(50)/3
		want := math.Abs(math.Log(50)/3 - 2)
		Expect(control.Cost(5, unstable, 2, opts)).To(BeNumerically("~", want, 1e-3))
	})

	It("keeps every feasible cost below the penalty", func() {
		plant := lti.MustNew([]float64{1}, []float64{1, 3, 2})
		for _, kp := range []float64{0.01, 0.5, 3, 40, 900} {
			c := control.Cost(kp, plant, 3, opts)
			Expect(c).To(BeNumerically("<", control.PenaltyCost), "kp=%g", kp)
		}
	})

	It("penalizes plants whose response cannot be simulated", func() {
		improper := lti.MustNew([]float64{1, 0, 0}, []float64{1, 1})
		Expect(control.Cost(1, improper, 1, opts)).To(Equal(control.PenaltyCost))
	})

	It("counts evaluations", func() {
		eval := control.NewEvaluator(unstable, 2, opts)
		for _, kp := range []float64{1, 3, 5} {
			eval.Evaluate(kp)
		}
		Expect(eval.Calls()).To(Equal(3))
	})
})

var _ = Describe("Proportional", func() {
	It("acts on the tracking error", func() {
		p := control.NewProportional(4)
		Expect(p.Compute(0.25, 1, 0)).To(Equal(dynamo.Control{3}))
		Expect(p.Compute(2, 1, 0)[0]).To(BeNumerically("<", 0))
		Expect(p.TransferFunction().Num()).To(Equal([]float64{4}))
	})
})
