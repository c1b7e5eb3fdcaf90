package chassis

import "math"

// Distances are in cm, speeds in cm/s. Wheel speed setpoints share the unit of
// forward velocity so the differential-drive relation needs no scaling.
const (
	WheelDiameterCM float64 = 8
	WheelCircumCM           = WheelDiameterCM * math.Pi

	TrackWidthCM = 15.0

	// Smallest wheel speed the drivetrain reliably executes.
	MinWheelSpeed = 5
	MaxWheelSpeed = 60
)

// WheelSpeedsForTwist converts a forward/angular velocity pair into left and
// right wheel speeds. Positive angular velocity turns anti-clockwise.
func WheelSpeedsForTwist(forwardVel, angularVel, trackWidth float64) (left, right float64) {
	left = forwardVel - angularVel*trackWidth/2
	right = forwardVel + angularVel*trackWidth/2
	return
}
