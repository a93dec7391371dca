package models

import "time"

// Follow is a directed edge meaning Follower follows Followee.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:1;index" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follows_pair,priority:2;index" json:"followee_id"`
	Follower   User      `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee   User      `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowEdge is the admin view of a follow relation.
type FollowEdge struct {
	FollowerID    uint      `json:"follower_id"`
	FollowerEmail string    `json:"follower_email"`
	FolloweeID    uint      `json:"followee_id"`
	FolloweeEmail string    `json:"followee_email"`
	CreatedAt     time.Time `json:"created_at"`
}
