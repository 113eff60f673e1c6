package enums

// NotificationVariant selects how a notice is presented.
type NotificationVariant string

const (
	NotificationVariantDefault     NotificationVariant = "default"
	NotificationVariantDestructive NotificationVariant = "destructive"
)

func (n NotificationVariant) String() string {
	return string(n)
}

// IsValid reports whether the storefront knows how to render n.
func (n NotificationVariant) IsValid() bool {
	switch n {
	case NotificationVariantDefault, NotificationVariantDestructive:
		return true
	}
	return false
}
