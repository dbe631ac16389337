// Package settlement adapts the external asset-transfer collaborators the
// engine depends on. The engine only moves custody through the Settler
// interface; it never touches token mechanics itself.
package settlement
