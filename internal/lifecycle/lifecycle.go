// Package lifecycle holds the status transition tables for listings and
// donations.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/example/foodshare/internal/models"
)

// TransitionError reports a status change the tables do not allow.
type TransitionError struct {
	Resource string
	From     string
	To       string
	Actor    string
	Valid    []string
}

func (e *TransitionError) Error() string {
	next := "none (terminal state)"
	if len(e.Valid) > 0 {
		next = strings.Join(e.Valid, ", ")
	}
	if e.Actor != "" {
		return fmt.Sprintf("%s cannot move from %s to %s as %s; valid next states: %s",
			e.Resource, e.From, e.To, e.Actor, next)
	}
	return fmt.Sprintf("%s cannot move from %s to %s; valid next states: %s",
		e.Resource, e.From, e.To, next)
}

type listingKey struct {
	From models.ListingStatus
	To   models.ListingStatus
}

// Listing transitions. reserved -> available exists only to release the
// reservation of a cancelled donation.
var listingTransitions = []listingKey{
	{models.ListingAvailable, models.ListingReserved},
	{models.ListingReserved, models.ListingClaimed},
	{models.ListingAvailable, models.ListingExpired},
	{models.ListingReserved, models.ListingExpired},
	{models.ListingReserved, models.ListingAvailable},
}

var listingMap = func() map[listingKey]bool {
	m := make(map[listingKey]bool, len(listingTransitions))
	for _, t := range listingTransitions {
		m[t] = true
	}
	return m
}()

// CanTransitionListing checks a listing status change.
func CanTransitionListing(from, to models.ListingStatus) error {
	if listingMap[listingKey{from, to}] {
		return nil
	}
	return &TransitionError{
		Resource: "listing",
		From:     string(from),
		To:       string(to),
		Valid:    listingNext(from),
	}
}

// ListingSources returns every status that may move to the given status.
func ListingSources(to models.ListingStatus) []models.ListingStatus {
	var out []models.ListingStatus
	for _, t := range listingTransitions {
		if t.To == to {
			out = append(out, t.From)
		}
	}
	return out
}

func listingNext(from models.ListingStatus) []string {
	var out []string
	for _, t := range listingTransitions {
		if t.From == from {
			out = append(out, string(t.To))
		}
	}
	return out
}

// DonationTransition is a donation status change and the party allowed to
// make it.
type DonationTransition struct {
	From  models.DonationStatus
	To    models.DonationStatus
	Actor models.Party
}

var donationTransitions = []DonationTransition{
	// The donor confirms the handoff.
	{From: models.DonationReserved, To: models.DonationPickedUp, Actor: models.PartyDonor},
	{From: models.DonationPickedUp, To: models.DonationCompleted, Actor: models.PartyRecipient},
	{From: models.DonationReserved, To: models.DonationCancelled, Actor: models.PartyDonor},
	{From: models.DonationReserved, To: models.DonationCancelled, Actor: models.PartyRecipient},
}

var donationMap = func() map[DonationTransition]bool {
	m := make(map[DonationTransition]bool, len(donationTransitions))
	for _, t := range donationTransitions {
		m[t] = true
	}
	return m
}()

// CanTransitionDonation checks a donation status change made by actor.
func CanTransitionDonation(from, to models.DonationStatus, actor models.Party) error {
	if donationMap[DonationTransition{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &TransitionError{
		Resource: "donation",
		From:     string(from),
		To:       string(to),
		Actor:    string(actor),
		Valid:    DonationNext(from, actor),
	}
}

// DonationNext returns the statuses actor may move a donation to.
func DonationNext(from models.DonationStatus, actor models.Party) []string {
	var out []string
	for _, t := range donationTransitions {
		if t.From == from && t.Actor == actor {
			out = append(out, string(t.To))
		}
	}
	return out
}
