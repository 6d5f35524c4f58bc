package model

// BannerKind identifies one of the two prompt banners.
type BannerKind string

const (
	BannerInstall      BannerKind = "install"
	BannerNotification BannerKind = "notification"
)

// BannerKinds lists every banner in display order.
var BannerKinds = []BannerKind{BannerInstall, BannerNotification}

// BannerState is the presentation state of a single banner.
//
// Hidden -> Offered -> Dismissed | Actioned. Dismissed and Actioned are
// terminal for the session.
type BannerState int

const (
	BannerHidden BannerState = iota
	BannerOffered
	BannerDismissed
	BannerActioned
)

// String returns the string representation of the banner state.
func (s BannerState) String() string {
	switch s {
	case BannerHidden:
		return "hidden"
	case BannerOffered:
		return "offered"
	case BannerDismissed:
		return "dismissed"
	case BannerActioned:
		return "actioned"
	default:
		return "unknown"
	}
}

// Visible reports whether the banner is currently on screen.
func (s BannerState) Visible() bool {
	return s == BannerOffered
}

// Terminal reports whether the banner can no longer change this session.
func (s BannerState) Terminal() bool {
	return s == BannerDismissed || s == BannerActioned
}
