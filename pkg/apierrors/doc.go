// Package apierrors is used throughout the gateway to classify failures and
// render them consistently on the wire, independent of which component
// detected the failure.
package apierrors
