// Package mock provides a test double for classify.Classifier.
package mock
