package events

import "github.com/smallbiznis/academy/internal/messaging"

// CoursesTopology is what the courses service declares: its own exchange,
// the users exchange it listens to and the certificate request queue.
func CoursesTopology(p messaging.QueuePolicy) messaging.Topology {
	return messaging.Topology{
		Exchanges: []messaging.Exchange{
			{Name: CourseExchange},
			{Name: UsersExchange},
		},
		Queues: []messaging.Queue{
			queue(CertificateRequestQueue, p),
		},
		Bindings: []messaging.Binding{
			{Queue: CertificateRequestQueue, Exchange: UsersExchange, RoutingKey: CertificateRequestedKey},
		},
	}.Merge(messaging.DeadLetterTopology(p))
}

// UsersTopology is what the users service declares.
func UsersTopology(p messaging.QueuePolicy) messaging.Topology {
	return messaging.Topology{
		Exchanges: []messaging.Exchange{
			{Name: UsersExchange},
			{Name: CourseExchange},
		},
		Queues: []messaging.Queue{
			queue(CoursesQueue, p),
			queue(CourseCertificatesQueue, p),
		},
		Bindings: []messaging.Binding{
			{Queue: CoursesQueue, Exchange: CourseExchange, RoutingKey: CourseLevelPassedKey},
			{Queue: CourseCertificatesQueue, Exchange: CourseExchange, RoutingKey: CertificateIssuedKey},
		},
	}.Merge(messaging.DeadLetterTopology(p))
}

func queue(name string, p messaging.QueuePolicy) messaging.Queue {
	return messaging.Queue{
		Name:               name,
		MessageTTL:         p.MessageTTL,
		DeadLetterExchange: p.DeadLetterExchange,
	}
}
