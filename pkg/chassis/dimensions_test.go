package chassis

import (
	"testing"

	"go.viam.com/test"
)

func TestWheelSpeedsForTwist(t *testing.T) {
	l, r := WheelSpeedsForTwist(10, 0, TrackWidthCM)
	test.That(t, l, test.ShouldEqual, 10.0)
	test.That(t, r, test.ShouldEqual, 10.0)

	l, r = WheelSpeedsForTwist(0, 2, 10)
	test.That(t, l, test.ShouldEqual, -10.0)
	test.That(t, r, test.ShouldEqual, 10.0)

	l, r = WheelSpeedsForTwist(20, -1, 10)
	test.That(t, l, test.ShouldEqual, 25.0)
	test.That(t, r, test.ShouldEqual, 15.0)
}
