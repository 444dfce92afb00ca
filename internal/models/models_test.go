package models

import "testing"

func TestNotificationTypeDisplay(t *testing.T) {
	if got := NotificationTaskAssigned.Display(); got != "Task Assigned" {
		t.Errorf("Display() = %q", got)
	}
	if got := NotificationType("custom").Display(); got != "custom" {
		t.Errorf("unknown type should display as itself, got %q", got)
	}
	if NotificationType("custom").Valid() {
		t.Error("unknown type must not be valid")
	}
}

func TestTaskParties(t *testing.T) {
	owner := &Task{UserID: 1}
	if got := owner.Parties(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Parties() = %v, want [1]", got)
	}

	self := int64(1)
	owner.AssignedTo = &self
	if got := owner.Parties(); len(got) != 1 {
		t.Errorf("self-assigned task should have one party, got %v", got)
	}

	other := int64(2)
	owner.AssignedTo = &other
	if got := owner.Parties(); len(got) != 2 || got[1] != 2 {
		t.Errorf("Parties() = %v, want [1 2]", got)
	}
}

func TestIdentityValid(t *testing.T) {
	if (Identity{Username: "ghost"}).Valid() {
		t.Error("identity without user id must be invalid")
	}
	if !(Identity{UserID: 7}).Valid() {
		t.Error("identity with user id must be valid")
	}
}
