package watchdog

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Watchdog", func() {
	var w *Watchdog

	BeforeEach(func() {
		w = New(50 * time.Millisecond)
	})

	AfterEach(func() {
		w.Stop()
	})

	It("should report healthy before being started", func() {
		Expect(w.Status()).To(BeTrue())
	})

	It("should report healthy while refreshed within the interval", func() {
		w.Start()

		for i := 0; i < 15; i++ {
			time.Sleep(10 * time.Millisecond)
			Expect(w.Status()).To(BeTrue())
			w.Update()
		}
	})

	It("should expire when the refresh is withheld", func() {
		w.Start()

		time.Sleep(80 * time.Millisecond)

		Expect(w.Status()).To(BeFalse())
		Expect(w.Status()).To(BeFalse())
	})

	It("should recover once refreshed again", func() {
		w.Start()

		time.Sleep(80 * time.Millisecond)
		Expect(w.Status()).To(BeFalse())

		w.Update()
		Expect(w.Status()).To(BeTrue())
	})

	It("should not expire while paused", func() {
		w.Start()
		w.Pause()

		time.Sleep(120 * time.Millisecond)

		Expect(w.Status()).To(BeTrue())
	})

	It("should restart the expiry window at the resume point", func() {
		w.Start()
		w.Pause()

		time.Sleep(120 * time.Millisecond)
		w.Resume()

		Expect(w.Status()).To(BeTrue())

		time.Sleep(80 * time.Millisecond)
		Expect(w.Status()).To(BeFalse())
	})

	It("should deliver the expiry callback exactly once", func() {
		var fired atomic.Int32
		w.OnExpire(func() { fired.Add(1) })
		w.Start()

		Eventually(func() int32 {
			return fired.Load()
		}).WithTimeout(time.Second).Should(Equal(int32(1)))

		Consistently(func() int32 {
			return fired.Load()
		}).WithTimeout(200 * time.Millisecond).Should(Equal(int32(1)))
	})

	It("should not deliver the expiry callback while refreshed", func() {
		var fired atomic.Int32
		w.OnExpire(func() { fired.Add(1) })
		w.Start()

		for i := 0; i < 10; i++ {
			time.Sleep(10 * time.Millisecond)
			w.Update()
		}

		Expect(fired.Load()).To(Equal(int32(0)))
	})

	It("should report healthy after being stopped", func() {
		w.Start()
		w.Stop()

		time.Sleep(80 * time.Millisecond)

		Expect(w.Status()).To(BeTrue())
	})

	It("should panic on a non-positive timeout", func() {
		Expect(func() { New(0) }).To(Panic())
	})
})
