package feed

// CanPublish reports whether the viewer may author posts.
func CanPublish(identity SessionIdentity) bool {
	return identity.OwnsProfileNFT
}

// CanTip reports whether the tip control is offered to the viewer for item.
// It is hidden for the post's own author and for viewers without a profile
// NFT, so non-members can never tip.
func CanTip(identity SessionIdentity, item FeedItem) bool {
	return !(identity.Address == item.Author.Address || !identity.OwnsProfileNFT)
}
