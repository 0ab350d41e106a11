package domain

import "strings"

// Namespace partitions the realtime surface so broadcasts and connection
// lookups can be scoped per feature area.
type Namespace string

const (
	NamespaceUnknown       Namespace = ""
	NamespaceNotifications Namespace = "notifications"
	NamespaceMessaging     Namespace = "messaging"
	NamespaceSocial        Namespace = "social"
	NamespacePresence      Namespace = "presence"
)

var allowedNamespaces = map[string]Namespace{
	string(NamespaceNotifications): NamespaceNotifications,
	string(NamespaceMessaging):     NamespaceMessaging,
	string(NamespaceSocial):        NamespaceSocial,
	string(NamespacePresence):      NamespacePresence,
}

// Namespaces returns every namespace the gateway serves, in a stable order.
func Namespaces() []Namespace {
	return []Namespace{NamespaceNotifications, NamespaceMessaging, NamespaceSocial, NamespacePresence}
}

// NormalizeNamespace returns the canonical Namespace for the given input or
// NamespaceUnknown when the value is not one of the fixed set.
func NormalizeNamespace(raw string) Namespace {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if ns, ok := allowedNamespaces[trimmed]; ok {
		return ns
	}
	return NamespaceUnknown
}

// Valid reports whether the namespace belongs to the fixed set.
func (n Namespace) Valid() bool {
	_, ok := allowedNamespaces[string(n)]
	return ok
}
