package review

// Fixtures is the seed catalog served until a real review source is connected.
func Fixtures() []Review {
	return []Review{
		{ID: 1, PatientName: "John Doe", Rating: 4, Comment: "Great experience overall. Staff was very friendly.", Date: "2023-03-15", Sentiment: SentimentPositive, Replied: true,
			Keywords: []string{"great", "experience", "friendly", "staff"},
			Reply:    "Thank you for your kind words, John! We're glad you had a great experience."},
		{ID: 2, PatientName: "Jane Smith", Rating: 2, Comment: "Long wait times and unfriendly receptionist.", Date: "2023-03-14", Sentiment: SentimentNegative,
			Keywords: []string{"long", "wait", "unfriendly", "receptionist"}},
		{ID: 3, PatientName: "Alice Johnson", Rating: 5, Comment: "Dr. Brown was excellent! Very thorough and caring.", Date: "2023-03-13", Sentiment: SentimentPositive, Replied: true,
			Keywords: []string{"excellent", "thorough", "caring"},
			Reply:    "We appreciate your feedback, Alice! Dr. Brown will be thrilled to hear this."},
		{ID: 4, PatientName: "Bob Wilson", Rating: 3, Comment: "Average experience. Nothing special to note.", Date: "2023-03-12", Sentiment: SentimentNeutral,
			Keywords: []string{"average", "experience", "nothing", "special"}},
		{ID: 5, PatientName: "Emma Davis", Rating: 1, Comment: "Terrible experience. Will not be returning.", Date: "2023-03-11", Sentiment: SentimentNegative,
			Keywords: []string{"terrible", "experience", "not", "returning"}},
		{ID: 6, PatientName: "Michael Lee", Rating: 4, Comment: "Very clean facility and professional staff.", Date: "2023-03-10", Sentiment: SentimentPositive, Replied: true,
			Keywords: []string{"clean", "facility", "professional", "staff"},
			Reply:    "Thank you for noticing our efforts, Michael! We strive to maintain a clean and professional environment."},
		{ID: 7, PatientName: "Sarah Brown", Rating: 5, Comment: "Exceptional care and attention to detail.", Date: "2023-03-09", Sentiment: SentimentPositive,
			Keywords: []string{"exceptional", "care", "attention", "detail"}},
		{ID: 8, PatientName: "David Clark", Rating: 2, Comment: "Felt rushed during the appointment.", Date: "2023-03-08", Sentiment: SentimentNegative,
			Keywords: []string{"rushed", "appointment"}},
	}
}
